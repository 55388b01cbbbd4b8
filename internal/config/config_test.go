package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for key, value := range map[string]string{
		"DATABASE_URL":               "postgres://localhost/quotes",
		"REDIS_URL":                  "redis://localhost:6379/0",
		"JWT_SECRET":                 "secret",
		"STYLE_CACHE_TTL":            "",
		"LOGO_MAX_HEIGHT_PX":         "",
		"WORKER_CONCURRENCY":         "",
		"EXPORT_RATE_LIMIT":          "",
		"NOTIFY_WEBHOOK_URL":         "",
		"NOTIFY_WEBHOOK_SECRET":      "",
		"CURRENCY_SYMBOL":            "",
		"PORT":                       "",
		"OBS_ENABLE_PPROF":           "",
		"OBS_ENABLE_TRACING":         "",
		"OBS_TRACING_SAMPLING_RATIO": "",
	} {
		t.Setenv(key, value)
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "quote_document_style", cfg.StyleConfigKey)
	require.Equal(t, 5*time.Minute, cfg.StyleCacheTTL)
	require.Equal(t, 180, cfg.LogoMaxHeightPx)
	require.Equal(t, "30-M", cfg.ExportRateLimit)
	require.Equal(t, 4, cfg.WorkerConcurrency)
	require.Equal(t, "R$", cfg.CurrencySymbol)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.True(t, cfg.Obs.TracingEnabled)
	require.False(t, cfg.Obs.PprofEnabled)
	require.Equal(t, 1.0, cfg.Obs.SamplingRatio)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STYLE_CACHE_TTL", "30s")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("PORT", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("OBS_ENABLE_TRACING", "off")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.StyleCacheTTL)
	require.Equal(t, 8, cfg.WorkerConcurrency)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	require.False(t, cfg.Obs.TracingEnabled)
}

func TestLoadValidation(t *testing.T) {
	t.Run("webhook without secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/quotes")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("missing secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		require.EqualError(t, err, "JWT_SECRET is required")
	})

	t.Run("every problem reported", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "")
		t.Setenv("WORKER_CONCURRENCY", "zero")
		t.Setenv("STYLE_CACHE_TTL", "-1m")
		_, err := Load()
		require.ErrorContains(t, err, "JWT_SECRET is required")
		require.ErrorContains(t, err, "WORKER_CONCURRENCY must be a positive integer")
		require.ErrorContains(t, err, "STYLE_CACHE_TTL must be a positive duration")
	})

	t.Run("pprof needs credentials", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("OBS_ENABLE_PPROF", "true")
		t.Setenv("SECURE_PPROF_BASIC_AUTH_USER", "")
		_, err := Load()
		require.ErrorContains(t, err, "SECURE_PPROF_BASIC_AUTH_USER")
	})
}
