package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	start time.Time
	count int
}

// memoryLimiter is a per-process fixed window counter. It backs the limiters when Redis is absent or failing.
type memoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	clients map[string]*clientInfo
	now     func() time.Time
}

const sweepThreshold = 10000

func newMemoryLimiter(window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		window:  window,
		clients: make(map[string]*clientInfo),
		now:     time.Now,
	}
}

// incr counts one hit for key and returns the count inside the current window.
func (l *memoryLimiter) incr(key string) int64 {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.clients) > sweepThreshold {
		for k, ci := range l.clients {
			if now.Sub(ci.start) > l.window {
				delete(l.clients, k)
			}
		}
	}

	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) > l.window {
		l.clients[key] = &clientInfo{start: now, count: 1}
		return 1
	}
	ci.count++
	return int64(ci.count)
}

// SimpleRateLimit blocks clients that send more than maxRequests per window, per IP, in memory only.
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := newMemoryLimiter(window)
	return func(c *gin.Context) {
		if l.incr(c.ClientIP()) > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
