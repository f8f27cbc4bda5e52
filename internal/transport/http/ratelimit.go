package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const tooManyAttemptsText = "Too many attempts, try again in a minute."

// rateLimiter counts attempts per key in fixed windows. Counters only reset
// while startReset is running.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	counters map[string]int
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:    limit,
		window:   time.Minute,
		counters: make(map[string]int),
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key]++
	return r.counters[key] <= r.limit
}

func (r *rateLimiter) clear() {
	r.mu.Lock()
	r.counters = make(map[string]int)
	r.mu.Unlock()
}

func (r *rateLimiter) startReset(stop <-chan struct{}) {
	if r == nil || r.limit <= 0 {
		return
	}
	ticker := time.NewTicker(r.window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.clear()
			case <-stop:
				return
			}
		}
	}()
}

// RateLimitMiddleware rejects requests from a client IP beyond limiter's budget.
func RateLimitMiddleware(limiter *rateLimiter, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			logger.Warn().
				Str("client_ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Str("request_id", c.GetString(ContextKeyRequestID)).
				Msg("rate limit exceeded")
			c.String(http.StatusTooManyRequests, "%s", tooManyAttemptsText)
			c.Abort()
			return
		}
		c.Next()
	}
}
