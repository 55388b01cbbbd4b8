package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-quotes/internal/app"
	"github.com/noah-isme/backend-quotes/internal/config"
	"github.com/noah-isme/backend-quotes/internal/export"
	"github.com/noah-isme/backend-quotes/internal/lock"
	"github.com/noah-isme/backend-quotes/internal/obs"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:    "quotes-worker",
		ServiceVersion: version,
		Endpoint:       cfg.Obs.OTLPEndpoint,
		Exporter:       cfg.Obs.TracingExporter,
		SamplingRatio:  cfg.Obs.SamplingRatio,
		Environment:    cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	buildCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	deps, err := app.Build(buildCtx, cfg, logger, app.Options{ApplicationName: "quotes-worker"})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	processor := export.NewProcessor(export.ProcessorConfig{
		Quotes:    deps.Budgets,
		Assembler: deps.Assembler,
		Delivery:  export.DirDelivery{Dir: cfg.ExportOutputDir},
		Notifier:  deps.Notifier,
		Locks:     lock.Locker{R: deps.Redis, Prefix: "quotes:lock:"},
		Logger:    logger,
	})

	mux := asynq.NewServeMux()
	mux.Use(obs.TaskObs(obs.NewTaskMetrics(cfg.Obs.MetricsNamespace, nil)))
	processor.Register(mux)

	srv := asynq.NewServer(deps.TaskRedis, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{export.DefaultQueue: 1},
		Logger:          obs.TaskLogger{Logger: logger},
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().Err(err).Str("task", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
	})

	metricsSrv := &http.Server{Addr: cfg.Obs.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker metrics server")
		}
	}()

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Str("output_dir", cfg.ExportOutputDir).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown metrics server")
	}
	logger.Info().Msg("worker shutdown complete")
}
