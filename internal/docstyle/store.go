package docstyle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates that no descriptor has been persisted under the key.
var ErrNotFound = errors.New("docstyle: descriptor not found")

// Store persists raw descriptor documents by key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps descriptors in the app_settings key/value table.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a Postgres-backed store.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

const loadSettingSQL = `SELECT value::text FROM app_settings WHERE key = $1`

const saveSettingSQL = `INSERT INTO app_settings (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

// Load returns the raw JSON stored under key.
func (s *PGStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	if err := s.db.QueryRow(ctx, loadSettingSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load setting %s: %w", key, err)
	}
	return []byte(value), nil
}

// Save upserts the raw JSON under key.
func (s *PGStore) Save(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.Exec(ctx, saveSettingSQL, key, string(value)); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// Cache keeps raw descriptors in Redis so renders skip the database round trip.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: "docstyle:"}
}

// Get returns the cached payload and whether the key existed.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.client == nil || key == "" {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores payload with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	return c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err()
}

// Invalidate drops the cached payload for key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}
