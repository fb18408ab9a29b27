package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/marketplace-auth/internal/domain"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token-bucket rate limiter with automatic stale-entry cleanup.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
	idle     time.Duration
}

// NewRateLimiter creates a per-IP limiter: r requests/second, burst up to burst requests.
// Entries idle for longer than it takes to refill the bucket are dropped by Run.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	idle := 10 * time.Minute
	if refill := time.Duration(float64(burst) / float64(r) * float64(time.Second)); refill > idle {
		idle = refill
	}
	return &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
		idle:     idle,
	}
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

// Run removes stale entries every 5 minutes until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.mu.Lock()
			for ip, v := range rl.limiters {
				if time.Since(v.lastSeen) > rl.idle {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Burst is the bucket size, i.e. the advertised request limit.
func (rl *RateLimiter) Burst() int { return rl.burst }

// Allow takes one token for key and reports whether it was available and how many remain.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	l := rl.get(key)
	ok := l.Allow()
	remaining := int(l.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return ok, remaining
}

// Limit is the middleware handler that enforces the rate limit per remote IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, _ := rl.Allow(RealIP(r)); !ok {
			WriteError(w, r, domain.RateLimit("Too many requests, please try again later."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RealIP returns the client address recorded by the nearest proxy: the right-most
// X-Forwarded-For entry, which the gateway appends, or RemoteAddr without one.
// Earlier entries come from the client and are ignored.
func RealIP(r *http.Request) string {
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(xff[len(xff)-1], ",")
		if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
			return ip
		}
	}
	return RemoteIP(r)
}

// RemoteIP returns the host part of RemoteAddr, i.e. the peer of this connection.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
