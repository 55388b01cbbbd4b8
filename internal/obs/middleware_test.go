package obs_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-quotes/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("quotes", []float64{1, 10}, registry)
	router := chi.NewRouter()
	router.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	router.Route("/api/v1/budgets", func(r chi.Router) {
		r.Get("/{id}/document", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("%PDF-1.3"))
		})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/budgets/42/document", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/budgets/{id}/document", "200")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.NotZero(t, testutil.CollectAndCount(metrics.RespBytes))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))

	again := obs.NewHTTPMetrics("quotes", nil, registry)
	require.Same(t, metrics.ReqTotal, again.ReqTotal)
}

func TestRequestLoggerAttachesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/budgets", nil))
	out := buf.String()
	require.Contains(t, out, `"message":"inside"`)
	require.Contains(t, out, `"message":"http_request"`)
	require.Contains(t, out, `"status":201`)
}

func TestRequestLoggerSkipsProbes(t *testing.T) {
	var buf bytes.Buffer
	handler := obs.RequestLogger{Logger: zerolog.New(&buf), SkipPrefixes: []string{"/health/"}}.Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Empty(t, buf.String())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil))
	require.Contains(t, buf.String(), `"level":"warn"`)
}

func TestTaskObsCountsResults(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewTaskMetrics("quotes", registry)
	mw := obs.TaskObs(metrics)

	errs := []error{nil, errors.New("boom"), asynq.SkipRetry}
	for _, want := range errs {
		h := mw(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return want }))
		got := h.ProcessTask(context.Background(), asynq.NewTask("quote:export", nil))
		require.Equal(t, want, got)
	}

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Processed.WithLabelValues("quote:export", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Processed.WithLabelValues("quote:export", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Processed.WithLabelValues("quote:export", "skipped")))
}
