// Package config loads the process configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is shared by the API, the worker and the tools.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string
	MigrationsAuto     bool

	StyleConfigKey string
	StyleCacheTTL  time.Duration

	CompanyName      string
	LogoURL          string
	LogoFetchTimeout time.Duration
	LogoMaxHeightPx  int
	CurrencySymbol   string

	ExportRateLimit   string
	ExportOutputDir   string
	WorkerConcurrency int

	// DiscountLimits overrides the role discount table, e.g. "seller=5/10,manager=10/20".
	DiscountLimits string

	NotifyWebhookURL    string
	NotifyWebhookSecret string

	IdempotencyTTL time.Duration

	Obs Obs
}

// Obs groups the logging, metrics, tracing and profiling switches.
type Obs struct {
	LogFormat         string
	LogLevel          string
	MetricsEnabled    bool
	MetricsNamespace  string
	MetricsBucketsMS  string
	WorkerMetricsAddr string
	TracingEnabled    bool
	TracingExporter   string
	OTLPEndpoint      string
	SamplingRatio     float64
	PprofEnabled      bool
	PprofUser         string
	PprofPass         string
}

// Load reads the environment, after merging a .env file from the working directory when
// one exists. Every missing or malformed setting is reported in the returned error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	r := &reader{k: k}

	cfg := &Config{
		AppEnv:             r.str("APP_ENV", "development"),
		Port:               r.str("PORT", "8080"),
		DatabaseURL:        r.str("DATABASE_URL", ""),
		RedisURL:           r.str("REDIS_URL", ""),
		JWTSecret:          r.str("JWT_SECRET", ""),
		JWTIssuer:          r.str("JWT_ISSUER", ""),
		JWTAudience:        r.str("JWT_AUDIENCE", ""),
		CORSAllowedOrigins: r.list("CORS_ALLOWED_ORIGINS"),
		MigrationsAuto:     r.flag("MIGRATIONS_AUTO", false),

		StyleConfigKey: r.str("STYLE_CONFIG_KEY", "quote_document_style"),
		StyleCacheTTL:  r.duration("STYLE_CACHE_TTL", 5*time.Minute),

		CompanyName:      r.str("DOCUMENT_COMPANY_NAME", ""),
		LogoURL:          r.str("DOCUMENT_LOGO_URL", ""),
		LogoFetchTimeout: r.duration("LOGO_FETCH_TIMEOUT", 3*time.Second),
		LogoMaxHeightPx:  r.positive("LOGO_MAX_HEIGHT_PX", 180),
		CurrencySymbol:   r.str("CURRENCY_SYMBOL", "R$"),

		ExportRateLimit:   r.str("EXPORT_RATE_LIMIT", "30-M"),
		ExportOutputDir:   r.str("EXPORT_OUTPUT_DIR", "./exports"),
		WorkerConcurrency: r.positive("WORKER_CONCURRENCY", 4),

		DiscountLimits: r.str("DISCOUNT_LIMITS", ""),

		NotifyWebhookURL:    r.str("NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookSecret: r.str("NOTIFY_WEBHOOK_SECRET", ""),

		IdempotencyTTL: r.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		Obs: Obs{
			LogFormat:         r.str("OBS_LOG_FORMAT", "json"),
			LogLevel:          r.str("OBS_LOG_LEVEL", "info"),
			MetricsEnabled:    r.flag("OBS_ENABLE_PROMETHEUS", true),
			MetricsNamespace:  r.str("OBS_METRICS_NAMESPACE", "quotes"),
			MetricsBucketsMS:  r.str("OBS_METRICS_BUCKETS_MS", ""),
			WorkerMetricsAddr: r.str("WORKER_METRICS_ADDR", ":9091"),
			TracingEnabled:    r.flag("OBS_ENABLE_TRACING", true),
			TracingExporter:   r.str("OBS_TRACING_EXPORTER", "otlp"),
			OTLPEndpoint:      r.str("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio:     r.ratio("OBS_TRACING_SAMPLING_RATIO", 1.0),
			PprofEnabled:      r.flag("OBS_ENABLE_PPROF", false),
			PprofUser:         r.str("SECURE_PPROF_BASIC_AUTH_USER", ""),
			PprofPass:         r.str("SECURE_PPROF_BASIC_AUTH_PASS", ""),
		},
	}

	r.require("DATABASE_URL", cfg.DatabaseURL)
	r.require("REDIS_URL", cfg.RedisURL)
	r.require("JWT_SECRET", cfg.JWTSecret)
	if cfg.Obs.PprofEnabled && cfg.Obs.PprofUser == "" {
		r.fail(errors.New("SECURE_PPROF_BASIC_AUTH_USER is required when OBS_ENABLE_PPROF is set"))
	}
	if cfg.NotifyWebhookURL != "" && cfg.NotifyWebhookSecret == "" {
		r.fail(errors.New("NOTIFY_WEBHOOK_SECRET is required when NOTIFY_WEBHOOK_URL is set"))
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddr returns the listen address; PORT may be given as "8080" or ":8080".
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

type reader struct {
	k    *koanf.Koanf
	errs []error
}

func (r *reader) fail(err error) { r.errs = append(r.errs, err) }

func (r *reader) require(key, value string) {
	if value == "" {
		r.fail(fmt.Errorf("%s is required", key))
	}
}

func (r *reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.k.String(key)); v != "" {
		return v
	}
	return fallback
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.k.String(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) flag(key string, fallback bool) bool {
	switch strings.ToLower(r.str(key, "")) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	}
	return fallback
}

func (r *reader) ratio(key string, fallback float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 1 {
		r.fail(fmt.Errorf("%s must be between 0 and 1, got %q", key, raw))
		return fallback
	}
	return f
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		r.fail(fmt.Errorf("%s must be a positive duration, got %q", key, raw))
		return fallback
	}
	return d
}

func (r *reader) positive(key string, fallback int) int {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		r.fail(fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return fallback
	}
	return n
}
