// Package ratelimit enforces per-client request limits at the HTTP edge.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports the outcome of counting one request against a limit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts a request against a key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// sanitizeSegment escapes the delimiter in client-controlled identifiers so
// a value containing ':' cannot address an adjacent bucket.
func sanitizeSegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// RedisLimiter implements a fixed window shared across instances. Each
// window gets its own key via INCR, so counting is atomic without scripts.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	seconds := int64(window / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	bucket := time.Now().Unix() / seconds
	bucketKey := fmt.Sprintf("ratelimit:%s:%d", sanitizeSegment(key), bucket)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, bucketKey)
	// A grace second keeps the key alive through the window boundary.
	pipe.Expire(ctx, bucketKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("count rate limit bucket: %w", err)
	}

	used := int(count.Val())
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   used <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Unix((bucket+1)*seconds, 0),
	}, nil
}

// MemoryLimiter implements a per-process sliding window. Single instance
// deployments and tests use it when redis is not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)
	stamps := l.windows[key]
	expired := 0
	for expired < len(stamps) && !stamps[expired].After(cutoff) {
		expired++
	}
	stamps = stamps[expired:]

	if len(stamps) >= limit {
		l.windows[key] = stamps
		return &Result{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   stamps[0].Add(window),
		}, nil
	}

	stamps = append(stamps, now)
	l.windows[key] = stamps
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(stamps),
		ResetAt:   stamps[0].Add(window),
	}, nil
}
