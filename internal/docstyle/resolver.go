package docstyle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/obs"
)

// DefaultKey is the settings key holding the quote document descriptor.
const DefaultKey = "quote_document_style"

// ErrInvalid wraps descriptor validation failures on save.
var ErrInvalid = errors.New("docstyle: invalid descriptor")

// ResolverConfig bundles the collaborators of a Resolver.
type ResolverConfig struct {
	Store  Store
	Cache  *Cache
	Key    string
	Logger zerolog.Logger
}

// Resolver loads the persisted descriptor and merges it over the defaults.
type Resolver struct {
	store  Store
	cache  *Cache
	key    string
	logger zerolog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = DefaultKey
	}
	return &Resolver{store: cfg.Store, cache: cfg.Cache, key: key, logger: cfg.Logger}
}

// Resolve returns the effective style. It never fails: storage or decoding problems are
// logged and the built-in defaults are returned.
func (r *Resolver) Resolve(ctx context.Context) Config {
	raw, err := r.load(ctx)
	if err != nil {
		r.fallback("store_error", err)
		return Defaults()
	}
	cfg, err := Resolve(raw)
	if err != nil {
		r.fallback("invalid", err)
		return Defaults()
	}
	return cfg
}

// Persisted returns the raw stored descriptor, or JSON null when nothing is stored.
func (r *Resolver) Persisted(ctx context.Context) (json.RawMessage, error) {
	raw, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(raw), nil
}

// Save validates and stores a partial descriptor, then returns the resulting style.
// Nothing is written when the descriptor does not resolve.
func (r *Resolver) Save(ctx context.Context, raw []byte) (Config, error) {
	if err := Validate(raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg, err := Resolve(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if r.store == nil {
		return Config{}, errors.New("docstyle: store not configured")
	}
	if err := r.store.Save(ctx, r.key, raw); err != nil {
		return Config{}, err
	}
	if err := r.cache.Invalidate(ctx, r.key); err != nil {
		r.logger.Warn().Err(err).Str("key", r.key).Msg("docstyle cache invalidate failed")
	}
	return cfg, nil
}

func (r *Resolver) load(ctx context.Context) ([]byte, error) {
	if cached, ok, err := r.cache.Get(ctx, r.key); err != nil {
		r.logger.Warn().Err(err).Str("key", r.key).Msg("docstyle cache read failed")
	} else if ok {
		return cached, nil
	}
	if r.store == nil {
		return nil, nil
	}
	raw, err := r.store.Load(ctx, r.key)
	switch {
	case errors.Is(err, ErrNotFound):
		raw = []byte("null")
	case err != nil:
		return nil, err
	}
	if err := r.cache.Set(ctx, r.key, raw); err != nil {
		r.logger.Warn().Err(err).Str("key", r.key).Msg("docstyle cache write failed")
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

func (r *Resolver) fallback(reason string, err error) {
	r.logger.Warn().Err(err).Str("key", r.key).Str("reason", reason).Msg("document style fell back to defaults")
	if obs.StyleFallbackTotal != nil {
		obs.StyleFallbackTotal.WithLabelValues(reason).Inc()
	}
}
