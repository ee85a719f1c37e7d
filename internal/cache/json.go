package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"moments/internal/observability"

	"github.com/redis/go-redis/v9"
)

// JSONCache stores JSON-encoded values in Redis. A nil client turns every
// lookup into a miss and every store into a no-op.
type JSONCache struct {
	client *redis.Client
	name   string
}

// NewJSONCache returns a cache labelled name in metrics.
func NewJSONCache(client *redis.Client, name string) *JSONCache {
	return &JSONCache{client: client, name: name}
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *JSONCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *JSONCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate
// dest, then stores dest with ttl. Redis failures degrade to calling fetch.
func (c *JSONCache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheRequests.WithLabelValues(c.label(), "error").Inc()
		observability.GlobalLogger.WarnContext(ctx, "cache read failed",
			slog.String("cache", c.label()),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	case found:
		observability.CacheRequests.WithLabelValues(c.label(), "hit").Inc()
		return nil
	default:
		observability.CacheRequests.WithLabelValues(c.label(), "miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	// Best-effort.
	_ = c.SetJSON(ctx, key, dest, ttl)
	return nil
}

func (c *JSONCache) label() string {
	if c == nil {
		return "none"
	}
	return c.name
}
