package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pipehub/internal/handler/http/middleware"
	"pipehub/internal/handler/http/respond"
)

// RateLimiter limits requests per client IP with one token bucket per address.
// It guards the OAuth endpoints, which each cost a GitHub round trip.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	ips   middleware.IPExtractor
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows limit requests per window for each client address,
// as a burst that refills evenly over the window. A nil extractor attributes
// requests to the TCP peer.
//
// Example:
//
//	limiter := NewRateLimiter(20, time.Minute, middleware.RemoteAddrExtractor{})
func NewRateLimiter(limit int, window time.Duration, ips middleware.IPExtractor) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if ips == nil {
		ips = middleware.RemoteAddrExtractor{}
	}
	return &RateLimiter{
		limit:     rate.Every(window / time.Duration(limit)),
		burst:     limit,
		idle:      window,
		ips:       ips,
		now:       time.Now,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

// Limit returns 429 Too Many Requests once the client's bucket is empty.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := rl.ips.ExtractIP(r)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.allow(ip) {
			respond.SafeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops visitors idle for a whole window; their buckets are full again.
// Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	rl.lastSweep = now
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

// tracked returns the number of addresses with a live bucket.
func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}
