package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atelierlumen/leadgate/internal/audit"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

// Limiter decides whether a request from ip may proceed.
type Limiter interface {
	Allow(ctx context.Context, ip string) bool
}

// RateLimiter provides per-IP rate limiting using an in-memory token
// bucket. Used when no shared redis is configured (single instance).
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // max tokens
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewRateLimiter creates a rate limiter allowing rate requests/sec with the
// given burst size per IP.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
	}
	// Periodically evict stale entries to prevent memory growth.
	go rl.cleanup()
	return rl
}

// Allow returns true if the request from ip is within the rate limit.
func (rl *RateLimiter) Allow(_ context.Context, ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
		rl.buckets[ip] = b
	}

	elapsed := now.Sub(b.lastTime).Seconds()
	b.tokens += elapsed * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for ip, b := range rl.buckets {
			if b.lastTime.Before(cutoff) {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RedisRateLimiter enforces a fixed window per IP in redis, shared across
// instances.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *logging.Logger
}

// NewRedisRateLimiter allows limit requests per window per IP.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, logger *logging.Logger) *RedisRateLimiter {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow increments the window counter for ip. On redis failure the request
// is allowed: losing rate limiting briefly beats dropping legitimate leads.
func (rl *RedisRateLimiter) Allow(ctx context.Context, ip string) bool {
	key := "ratelimit:contact:" + ip
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		rl.logger.Warn("rate limiter redis error, allowing request", "error", err)
		return true
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.Warn("rate limiter expire failed", "error", err)
		}
	}
	return count <= int64(rl.limit)
}

// RateLimit rejects requests exceeding the limiter with 429 Too Many
// Requests and records a rate_limit security event.
func RateLimit(limiter Limiter, events audit.Recorder, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(r.Context(), ip) {
				if events != nil {
					event := audit.Event{
						Type:      audit.EventRateLimit,
						SourceIP:  ip,
						UserAgent: r.UserAgent(),
						Details:   audit.Details{Reasons: []string{"rate_limit_exceeded"}}.Marshal(),
					}
					if err := events.Record(r.Context(), event); err != nil {
						logger.Error("failed to record rate_limit event", "error", err)
					}
				}
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers X-Real-Ip set by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
