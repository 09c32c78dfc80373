package interceptors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// limiterIdleTTL is how long an unused per-caller limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller (user id, else client IP).
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	callers map[string]*callerLimiter
	nowF    func() time.Time
}

// NewRateLimiter returns a limiter allowing rps requests per second with the given burst per caller.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		callers: make(map[string]*callerLimiter),
		nowF:    time.Now,
	}
}

// Allow reports whether key may make a request now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowF()
	c, ok := r.callers[key]
	if !ok {
		r.evictIdle(now)
		c = &callerLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.callers[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (r *RateLimiter) evictIdle(now time.Time) {
	for k, c := range r.callers {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(r.callers, k)
		}
	}
}

// RateLimitUnary rejects calls over the caller's budget with ResourceExhausted. A nil limiter disables it.
// Must run after AuthUnary so signed-in callers are keyed by user id.
func RateLimitUnary(limiter *RateLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if limiter == nil {
			return handler(ctx, req)
		}
		key := "ip:" + ClientIP(ctx)
		if userID, ok := GetUserID(ctx); ok {
			key = "user:" + userID
		}
		if !limiter.Allow(key) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
