package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisAlshanov/ytgrab/internal/config"
	"github.com/denisAlshanov/ytgrab/internal/models"
	"github.com/denisAlshanov/ytgrab/internal/utils"
)

// rateLimiter is a sliding-window limiter keyed by client. Stale keys are
// swept on the request path once per window, so it needs no goroutine.
type rateLimiter struct {
	requests  map[string][]time.Time
	mu        sync.Mutex
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *rateLimiter) recent(times []time.Time, now time.Time) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}
	return valid
}

// sweep must be called with mu held.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for key, times := range rl.requests {
		if valid := rl.recent(times, now); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func (rl *rateLimiter) isAllowed(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	valid := rl.recent(rl.requests[key], now)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// RateLimitMiddleware limits requests per client IP.
func RateLimitMiddleware(cfg *config.APIConfig) gin.HandlerFunc {
	return rateLimitWith(newRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow))
}

func rateLimitWith(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.isAllowed(c.ClientIP()) {
			appErr := utils.NewRateLimitError()
			utils.LogWarn(c.Request.Context(), "Rate limit exceeded", utils.Fields{
				"ip":   c.ClientIP(),
				"path": c.Request.URL.Path,
			})
			c.AbortWithStatusJSON(appErr.StatusCode, models.ErrorResponse{
				Error:     appErr.Message,
				Code:      string(appErr.Code),
				RequestID: c.GetString("request_id"),
				Timestamp: time.Now().Format(time.RFC3339),
			})
			return
		}

		c.Next()
	}
}
