package obs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TaskMetrics groups the collectors for background task processing.
type TaskMetrics struct {
	Processed *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

// NewTaskMetrics registers and returns the task collectors.
func NewTaskMetrics(namespace string, reg prometheus.Registerer) *TaskMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &TaskMetrics{
		Processed: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Count of processed background tasks by type and result.",
		}, []string{"type", "result"})),
		Duration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_ms",
			Help:      "Background task latency distribution in milliseconds.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"type"})),
	}
}

// TaskObs traces and measures every task handled by the wrapped handler.
func TaskObs(m *TaskMetrics) asynq.MiddlewareFunc {
	tracer := otel.Tracer("asynq.worker")
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			ctx, span := tracer.Start(ctx, "task "+t.Type())
			defer span.End()
			span.SetAttributes(attribute.String("task.type", t.Type()))

			start := time.Now()
			err := next.ProcessTask(ctx, t)
			result := "ok"
			switch {
			case err == nil:
			case errors.Is(err, asynq.SkipRetry):
				result = "skipped"
			default:
				result = "error"
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			if m != nil {
				m.Processed.WithLabelValues(t.Type(), result).Inc()
				m.Duration.WithLabelValues(t.Type()).Observe(DurationMillis(time.Since(start)))
			}
			return err
		})
	}
}
