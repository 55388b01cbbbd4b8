// Package app wires the shared services used by the API, the worker and the tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-quotes/internal/budget"
	"github.com/noah-isme/backend-quotes/internal/config"
	"github.com/noah-isme/backend-quotes/internal/db"
	"github.com/noah-isme/backend-quotes/internal/discount"
	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/document"
	"github.com/noah-isme/backend-quotes/internal/health"
	"github.com/noah-isme/backend-quotes/internal/notify"
	"github.com/noah-isme/backend-quotes/internal/resilience"
)

// Options tweaks how Build connects. WithoutRedis skips the style cache and the task
// broker, for offline tools.
type Options struct {
	ApplicationName string
	RedisMetrics    bool
	WithoutRedis    bool
}

// Dependencies enumerates core services shared across binaries.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Store     *budget.PGStore
	Budgets   *budget.Service
	Policies  *discount.Resolver
	Styles    *docstyle.Resolver
	Assembler *document.Assembler
	Notifier  notify.Notifier
	TaskRedis asynq.RedisConnOpt
}

// Build connects to Postgres and Redis and assembles the domain services.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if err := resilience.RegisterMetrics(nil); err != nil {
		return nil, fmt.Errorf("register breaker metrics: %w", err)
	}

	table, err := discount.ParseTable(discount.DefaultTable(), cfg.DiscountLimits)
	if err != nil {
		return nil, fmt.Errorf("DISCOUNT_LIMITS: %w", err)
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, opts.ApplicationName)
	if err != nil {
		return nil, err
	}
	deps := &Dependencies{Config: cfg, Logger: logger, DB: pool}

	var styleCache *docstyle.Cache
	if !opts.WithoutRedis {
		deps.TaskRedis, err = asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("parse task redis url: %w", err)
		}
		deps.Redis, err = openRedis(ctx, cfg.RedisURL, opts.RedisMetrics, logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		styleCache = docstyle.NewCache(deps.Redis, cfg.StyleCacheTTL)
	}

	deps.Notifier, err = NewNotifier(cfg, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Store = budget.NewPGStore(pool)
	deps.Policies = discount.NewResolver(table)
	deps.Budgets = budget.NewService(budget.ServiceConfig{
		Store:    deps.Store,
		Policies: deps.Policies,
		Logger:   logger.With().Str("component", "budget").Logger(),
		Notifier: deps.Notifier,
	})
	deps.Styles = docstyle.NewResolver(docstyle.ResolverConfig{
		Store:  docstyle.NewPGStore(pool),
		Cache:  styleCache,
		Key:    cfg.StyleConfigKey,
		Logger: logger.With().Str("component", "docstyle").Logger(),
	})
	deps.Assembler = document.NewAssembler(document.AssemblerConfig{
		Styles:      deps.Styles,
		Logo:        document.NewLogoFetcher(cfg.LogoURL, cfg.LogoFetchTimeout, cfg.LogoMaxHeightPx),
		CompanyName: cfg.CompanyName,
		Currency:    cfg.CurrencySymbol,
		Logger:      logger.With().Str("component", "document").Logger(),
	})
	return deps, nil
}

// Close releases the connections.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// Probes returns the readiness checks for the shared connections.
func (d *Dependencies) Probes() []health.Probe {
	return []health.Probe{
		{Name: "db", Timeout: 500 * time.Millisecond, Check: func(ctx context.Context) error {
			if d.DB == nil {
				return errors.New("db not configured")
			}
			return d.DB.Ping(ctx)
		}},
		{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error {
			if d.Redis == nil {
				return errors.New("redis not configured")
			}
			return d.Redis.Ping(ctx).Err()
		}},
	}
}

// NewNotifier always logs and additionally posts to the webhook when one is configured.
func NewNotifier(cfg *config.Config, logger zerolog.Logger) (notify.Notifier, error) {
	notifiers := notify.Multi{notify.LogNotifier{Logger: logger}}
	if cfg.NotifyWebhookURL == "" {
		return notifiers, nil
	}
	client := &resilience.HTTPClient{
		Client:      &http.Client{Timeout: 5 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     resilience.NewBreaker(5, 0.5, time.Minute).WithTarget("notify").WithLogger(logger),
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		Jitter:      0.2,
		Target:      "notify",
	}
	webhook, err := notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret, client)
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_WEBHOOK_URL: %w", err)
	}
	return append(notifiers, webhook), nil
}

func openRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
