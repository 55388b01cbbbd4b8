package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/app"
	"github.com/noah-isme/backend-quotes/internal/auth"
	"github.com/noah-isme/backend-quotes/internal/budget"
	"github.com/noah-isme/backend-quotes/internal/common"
	"github.com/noah-isme/backend-quotes/internal/config"
	"github.com/noah-isme/backend-quotes/internal/db"
	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/document"
	"github.com/noah-isme/backend-quotes/internal/export"
	"github.com/noah-isme/backend-quotes/internal/health"
	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/ratelimit"
	"github.com/noah-isme/backend-quotes/internal/security"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// handlers bundles what the router mounts.
type handlers struct {
	auth     auth.Middleware
	limit    ratelimit.Handler
	idem     common.Idem
	budgets  *budget.Handler
	styles   *docstyle.Handler
	document *document.Handler
	health   health.Handler
	metrics  *obs.HTTPMetrics
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Str("service", "quotes-api").Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)

	tracing := cfg.Obs.TracingEnabled
	if tracing {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "quotes-api",
			ServiceVersion: version,
			Endpoint:       cfg.Obs.OTLPEndpoint,
			Exporter:       cfg.Obs.TracingExporter,
			SamplingRatio:  cfg.Obs.SamplingRatio,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracing = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrationsAuto {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	deps, err := app.Build(ctx, cfg, logger, app.Options{ApplicationName: "quotes-api", RedisMetrics: cfg.Obs.MetricsEnabled})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}

	exportLimiter, err := ratelimit.NewRedis(deps.Redis, "quotes:ratelimit:export:", cfg.ExportRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise export rate limiter")
	}

	taskClient := asynq.NewClient(deps.TaskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	h := handlers{
		auth: auth.Middleware{Tokens: verifier, Roles: deps.Store},
		limit: ratelimit.Handler{
			Limiter: exportLimiter,
			OnError: func(err error) { logger.Warn().Err(err).Msg("export rate limiter unavailable") },
		},
		idem:    common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL},
		budgets: budget.NewHandler(budget.HandlerConfig{Service: deps.Budgets, Currency: cfg.CurrencySymbol}),
		styles:  docstyle.NewHandler(deps.Styles),
		document: document.NewHandler(document.HandlerConfig{
			Quotes:    deps.Budgets,
			Assembler: deps.Assembler,
			Jobs:      export.NewClient(taskClient, export.ClientConfig{}),
		}),
		health: health.Handler{Probes: deps.Probes()},
	}
	if cfg.Obs.MetricsEnabled {
		h.metrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBucketsMS), nil)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(cfg, logger, tracing, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func newRouter(cfg *config.Config, logger zerolog.Logger, tracing bool, h handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracing {
		r.Use(obs.TracingMiddleware)
	}
	if h.metrics != nil {
		r.Use(obs.HTTPObs{Metrics: h.metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger, SkipPrefixes: []string{"/health/", "/metrics"}}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: 31536000, NoStorePrefixes: []string{"/api/"}}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(corsOptions(cfg.CORSAllowedOrigins)))

	if h.metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		r.With(middleware.BasicAuth("pprof", map[string]string{cfg.Obs.PprofUser: cfg.Obs.PprofPass})).
			Mount("/debug", middleware.Profiler())
	}
	r.Get("/health/live", h.health.Live)
	r.Get("/health/ready", h.health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(h.auth.RequireAuth)

		v.Route("/budgets", func(b chi.Router) {
			b.Get("/", h.budgets.List)
			b.With(h.idem.Middleware).Post("/", h.budgets.Create)
			b.Post("/preview", h.budgets.Preview)
			b.Route("/{id}", func(item chi.Router) {
				item.Get("/", h.budgets.Get)
				item.Put("/", h.budgets.Update)
				item.Patch("/status", h.budgets.ChangeStatus)
				item.Get("/due-dates", h.budgets.DueDates)
				item.With(h.limit.Middleware).Get("/document", h.document.Download)
				item.With(h.limit.Middleware, h.idem.Middleware).Post("/document/jobs", h.document.Enqueue)
			})
		})

		v.Get("/discount-policy", h.budgets.Policy)
		v.Get("/products", h.budgets.Products)
		v.Get("/clients", h.budgets.Clients)
		v.Get("/payment-options", h.budgets.PaymentOptions)

		v.Get("/settings/document-style", h.styles.Get)
		v.With(h.auth.RequireRole("admin")).Put("/settings/document-style", h.styles.Put)
	})
	return r
}

// corsOptions allows any origin without credentials unless explicit origins are configured.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"Content-Disposition", "X-Document-Pages", "Retry-After"},
		MaxAge:         300,
	}
	if len(origins) > 0 {
		opts.AllowedOrigins = origins
		opts.AllowCredentials = true
	}
	return opts
}
