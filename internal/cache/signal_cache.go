package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tickerpulse/internal/domain"

	"github.com/redis/go-redis/v9"
)

const signalCacheTTL = 15 * time.Minute

// RedisClient is the subset of redis operations the signal cache needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SignalCache keeps the most recent composite signal per symbol so the
// read API can answer without touching Postgres.
type SignalCache struct {
	redis RedisClient
}

func NewSignalCache(client RedisClient) *SignalCache {
	return &SignalCache{redis: client}
}

func (c *SignalCache) SetLatest(ctx context.Context, sig domain.Signal) error {
	if c == nil || c.redis == nil {
		return nil
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	return c.redis.Set(ctx, signalKey(sig.Symbol), payload, signalCacheTTL).Err()
}

// GetLatest returns (nil, nil) on a cache miss.
func (c *SignalCache) GetLatest(ctx context.Context, symbol string) (*domain.Signal, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}
	raw, err := c.redis.Get(ctx, signalKey(symbol)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sig domain.Signal
	if err := json.Unmarshal([]byte(raw), &sig); err != nil {
		return nil, fmt.Errorf("unmarshal cached signal: %w", err)
	}
	return &sig, nil
}

func signalKey(symbol string) string {
	return "signal:latest:" + strings.ToUpper(symbol)
}
