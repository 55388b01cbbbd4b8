package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time
}

// Allower checks and counts one request against key.
type Allower interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Limiter adapts a ulule limiter to Allower.
type Limiter struct {
	l *limiter.Limiter
}

// New builds a Limiter from a store and a formatted rate such as "30-M".
func New(store limiter.Store, formatted string) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	return &Limiter{l: limiter.New(store, rate)}, nil
}

// NewRedis builds a Limiter whose counters live in Redis under prefix.
func NewRedis(rdb *redis.Client, prefix, formatted string) (*Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("create limiter store: %w", err)
	}
	return New(store, formatted)
}

// Allow implements Allower.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := l.l.Get(ctx, key)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     res.Limit,
		Remaining: res.Remaining,
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
