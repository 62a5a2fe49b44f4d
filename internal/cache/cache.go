// Package cache stores computed dashboard aggregates. Redis is used when
// configured; otherwise every lookup misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

type noopCache struct{}

// NewNoop returns a cache that never stores anything.
func NewNoop() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) ([]byte, error)              { return nil, ErrMiss }
func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopCache) Ping(context.Context) error                               { return nil }
func (noopCache) Close() error                                             { return nil }

// GetOrCompute returns the cached JSON value under key, or calls compute and
// stores its result. Cache failures are logged and never returned; only
// compute errors are.
func GetOrCompute[T any](ctx context.Context, c Cache, logger *slog.Logger, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	raw, err := c.Get(ctx, key)
	if err == nil {
		var v T
		if err = json.Unmarshal(raw, &v); err == nil {
			logger.Debug("cache hit", "key", key)
			return v, nil
		}
		logger.Warn("cache entry undecodable", "key", key, "error", err)
	} else if !errors.Is(err, ErrMiss) {
		logger.Warn("cache get failed", "key", key, "error", err)
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}

	raw, err = json.Marshal(v)
	if err != nil {
		logger.Warn("cache encode failed", "key", key, "error", err)
		return v, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		logger.Warn("cache set failed", "key", key, "error", err)
	}
	return v, nil
}

// Key builds a cache key. Pattern: tempapp:{kind}:{part}:{part}...
func Key(kind string, parts ...string) string {
	k := "tempapp:" + kind
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// TimeKey formats t for use in a key.
func TimeKey(t time.Time) string {
	return fmt.Sprintf("%d", t.UTC().UnixMilli())
}
