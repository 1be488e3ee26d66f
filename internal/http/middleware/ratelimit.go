package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/davidbz/placefinder/internal/config"
	"github.com/davidbz/placefinder/internal/observability"
)

const limiterIdleTTL = 10 * time.Minute

// IPRateLimiter manages per-IP rate limiters. Limiters of idle addresses
// are evicted.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters *gocache.Cache
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a new IP-based rate limiter. A non-positive rate
// disables limiting.
func NewIPRateLimiter(cfg *config.RateLimitConfig) *IPRateLimiter {
	l := &IPRateLimiter{
		mu:       sync.Mutex{},
		limiters: gocache.New(limiterIdleTTL, limiterIdleTTL),
		rate:     rate.Inf,
		burst:    1,
	}

	if cfg != nil && cfg.RPS > 0 {
		l.rate = rate.Limit(cfg.RPS)
		l.burst = max(cfg.Burst, 1)
	}

	return l
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	if raw, found := i.limiters.Get(ip); found {
		i.limiters.SetDefault(ip, raw)
		return raw.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(i.rate, i.burst)
	i.limiters.SetDefault(ip, limiter)
	return limiter
}

// RateLimit returns a middleware that rejects requests over the per-IP rate
// with 429.
func (i *IPRateLimiter) RateLimit() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if !i.getLimiter(ip).Allow() {
				observability.FromContext(r.Context()).Warn("rate limit exceeded",
					observability.String("ip", ip),
					observability.String("path", r.URL.Path),
				)

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
