package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Default chat budget: 100 requests per owner per hour, fixed window.
const (
	DefaultRateLimitMax    = 100
	DefaultRateLimitWindow = time.Hour
)

// RateLimitDecision is the outcome of one rate-limit check.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter gates requests into the orchestrator per owner identity.
// Counters for different owners are fully independent.
type RateLimiter interface {
	Allow(ctx context.Context, ownerID string) RateLimitDecision
}

// ownerWindow is one owner's fixed-window counter. The mutex prevents
// undercounting when the same user double-submits.
type ownerWindow struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// MemoryRateLimiter keeps per-owner counters in process memory. State
// does not survive restarts and does not coordinate across instances;
// multi-instance deployments should configure the Redis backend
// instead.
type MemoryRateLimiter struct {
	max     int
	window  time.Duration
	windows *cache.Cache
	// createMu serializes first-seen owner creation only; steady-state
	// requests take the per-owner lock.
	createMu sync.Mutex
}

// NewMemoryRateLimiter creates an in-memory fixed-window limiter.
func NewMemoryRateLimiter(max int, window time.Duration) *MemoryRateLimiter {
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &MemoryRateLimiter{
		max:    max,
		window: window,
		// Expired windows are garbage; let the cache sweep them.
		windows: cache.New(window, 10*time.Minute),
	}
}

// Allow checks and consumes one request from the owner's budget.
func (l *MemoryRateLimiter) Allow(_ context.Context, ownerID string) RateLimitDecision {
	w := l.ownerWindow(ownerID)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if now.Sub(w.windowStart) >= l.window {
		w.windowStart = now
		w.count = 0
	}

	resetAt := w.windowStart.Add(l.window)
	if w.count >= l.max {
		return RateLimitDecision{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: resetAt}
	}

	w.count++
	return RateLimitDecision{
		Allowed:   true,
		Limit:     l.max,
		Remaining: l.max - w.count,
		ResetAt:   resetAt,
	}
}

func (l *MemoryRateLimiter) ownerWindow(ownerID string) *ownerWindow {
	if v, ok := l.windows.Get(ownerID); ok {
		return v.(*ownerWindow)
	}

	l.createMu.Lock()
	defer l.createMu.Unlock()
	if v, ok := l.windows.Get(ownerID); ok {
		return v.(*ownerWindow)
	}
	w := &ownerWindow{windowStart: time.Now()}
	l.windows.Set(ownerID, w, l.window)
	return w
}

// RedisRateLimiter shares the per-owner counters across server
// instances with atomic increment-and-check semantics.
type RedisRateLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisRateLimiter creates a Redis-backed fixed-window limiter.
func NewRedisRateLimiter(client *redis.Client, max int, window time.Duration) *RedisRateLimiter {
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &RedisRateLimiter{client: client, max: max, window: window}
}

// Allow increments the owner's counter, starting the window expiry on
// the first request. Redis failures fail open: an unavailable counter
// backend must not take chat down.
func (l *RedisRateLimiter) Allow(ctx context.Context, ownerID string) RateLimitDecision {
	key := fmt.Sprintf("ratelimit:chat:%s", ownerID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("⚠️  [RATE-LIMIT] Redis unavailable, failing open: %v", err)
		return RateLimitDecision{Allowed: true, Limit: l.max, Remaining: l.max, ResetAt: time.Now().Add(l.window)}
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.window)
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	resetAt := time.Now().Add(ttl)

	if count > int64(l.max) {
		return RateLimitDecision{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: resetAt}
	}
	return RateLimitDecision{
		Allowed:   true,
		Limit:     l.max,
		Remaining: l.max - int(count),
		ResetAt:   resetAt,
	}
}
