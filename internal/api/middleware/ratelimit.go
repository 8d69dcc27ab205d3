package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	apierrors "github.com/narvanalabs/matchday/internal/api/errors"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Callers are keyed by user ID
// when authenticated and by remote address otherwise.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perMinute int
	burst     int
	ttl       time.Duration
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per caller with
// the given burst. Idle callers are forgotten after ttl.
func NewRateLimiter(perMinute, burst int, ttl time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		perMinute: perMinute,
		burst:     burst,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).AllowN(rl.now(), 1)
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = rl.now()
		return v.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.burst)
	rl.visitors[key] = &visitor{limiter: limiter, lastSeen: rl.now()}
	return limiter
}

// Cleanup forgets callers idle for longer than the TTL. It returns the number removed.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Len returns the number of tracked callers.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Limit rejects requests over the caller's budget with 429. A nil limiter
// or a non-positive rate disables limiting.
func Limit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil || rl.perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetUserID(r.Context())
			if key == "" {
				key = clientHost(r)
			}
			if !rl.Allow(key) {
				w.Header().Set("Retry-After", "60")
				apierrors.WriteErrorWithRequestID(w,
					apierrors.NewRateLimitedError("Too many requests, try again shortly"),
					middleware.GetReqID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientHost strips the port so every connection from one client shares a bucket.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
