// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/core"
)

// Limiter meters requests in Redis. While Redis is unreachable each key
// falls back to an in-process token bucket with the same limit.
type Limiter struct {
	store *redis_rate.Limiter
	local *localBuckets
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{
		store: redis_rate.NewLimiter(rdb),
		local: &localBuckets{buckets: make(map[string]*localBucket)},
	}
}

func toLimit(cfg config.LimitConfig) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   cfg.Requests,
		Burst:  cfg.Burst,
		Period: cfg.Window,
	}
}

// PerClient limits by client address. With perRoute set, each matched
// route pattern gets its own bucket, so /contacts/{contactID} is one bucket
// no matter which id is requested.
func (l *Limiter) PerClient(
	cfg config.LimitConfig,
	perRoute bool,
) func(http.Handler) http.Handler {
	limit := toLimit(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:ip:" + clientIP(r)
			if perRoute {
				key += ":route:" + routeOf(r)
			}

			if !l.admit(w, r, key, limit) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PerSubscription limits authenticated callers by the limit configured for
// their subscription. It must run after Authenticator.
func (l *Limiter) PerSubscription(
	cfg config.RateLimitConfig,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := GetSubscription(r.Context())
			tierCfg, ok := cfg.Tiers[tier]
			if !ok {
				tier = cfg.DefaultTier
				tierCfg = cfg.Tiers[tier]
			}

			key := "ratelimit:user:" + GetUserID(r.Context())
			w.Header().Set("X-RateLimit-Tier", tier)

			if !l.admit(w, r, key, toLimit(tierCfg)) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// admit takes one token for key and writes the 429 response when none is
// left.
func (l *Limiter) admit(
	w http.ResponseWriter,
	r *http.Request,
	key string,
	limit redis_rate.Limit,
) bool {
	res := l.take(r.Context(), key, limit)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))

	if res.Allowed > 0 {
		return true
	}

	retryAfter := max(int(res.RetryAfter.Seconds()), 1)
	h.Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.NewAppError(
		core.ErrRateLimited,
		fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfter),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	))
	return false
}

func (l *Limiter) take(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	res, err := l.store.Allow(ctx, key, limit)
	if err == nil {
		return res
	}

	slog.WarnContext(ctx, "rate limit store unavailable, using local bucket",
		"key", key,
		"error", err,
	)
	return l.local.take(key, limit, time.Now())
}

// clientIP prefers the last X-Forwarded-For hop, which is the one appended
// by our own proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

const bucketTTL = 10 * time.Minute

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
}

func (b *localBuckets) take(
	key string,
	limit redis_rate.Limit,
	now time.Time,
) *redis_rate.Result {
	interval := limit.Period / time.Duration(limit.Rate)

	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) > bucketTTL {
		for k, bucket := range b.buckets {
			if now.Sub(bucket.lastSeen) > bucketTTL {
				delete(b.buckets, k)
			}
		}
		b.lastSweep = now
	}

	bucket, ok := b.buckets[key]
	if !ok {
		bucket = &localBucket{limiter: rate.NewLimiter(rate.Every(interval), limit.Burst)}
		b.buckets[key] = bucket
	}
	bucket.lastSeen = now

	res := &redis_rate.Result{Limit: limit, ResetAfter: interval, RetryAfter: -1}
	if bucket.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(int(bucket.limiter.TokensAt(now)), 0)

	return res
}
