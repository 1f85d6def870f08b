package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a fixed-window request limit per key.
type RateLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	counts map[string]int
	resets map[string]time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]int),
		resets: make(map[string]time.Time),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if reset, ok := rl.resets[key]; !ok || now.After(reset) {
		rl.counts[key] = 0
		rl.resets[key] = now.Add(rl.window)
	}

	if rl.counts[key] >= rl.limit {
		return false
	}

	rl.counts[key]++
	return true
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, reset := range rl.resets {
			if now.After(reset) {
				delete(rl.counts, key)
				delete(rl.resets, key)
			}
		}
		rl.mu.Unlock()
	}
}

func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": limiter.window.Seconds(),
			})
			return
		}
		c.Next()
	}
}
