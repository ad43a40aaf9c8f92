package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Throttle limits attempts on sensitive endpoints (login, registration) per key
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryThrottle keeps attempt counts in the process
type MemoryThrottle struct {
	limiter *Limiter
	max     int
	window  time.Duration
}

func NewMemoryThrottle(limiter *Limiter, max int, window time.Duration) *MemoryThrottle {
	return &MemoryThrottle{limiter: limiter, max: max, window: window}
}

func (t *MemoryThrottle) Allow(_ context.Context, key string) (bool, error) {
	return t.limiter.AllowStrict(key, t.max, t.window), nil
}

// Counter is the fixed-window counter the Redis client provides
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisThrottle shares attempt counts across server instances.
// A Redis failure lets the request through and logs a warning.
type RedisThrottle struct {
	counter Counter
	prefix  string
	max     int
	window  time.Duration
	logger  *slog.Logger
}

func NewRedisThrottle(counter Counter, prefix string, max int, window time.Duration, logger *slog.Logger) *RedisThrottle {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisThrottle{counter: counter, prefix: prefix, max: max, window: window, logger: logger}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	n, err := t.counter.IncrWindow(ctx, fmt.Sprintf("%s:%s", t.prefix, key), t.window)
	if err != nil {
		t.logger.Warn("throttle store unavailable, allowing request",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true, err
	}
	return n <= int64(t.max), nil
}
