package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// UserRateLimit limits an action per authenticated user rather than per IP.
// It must run after JWT.
func UserRateLimit(action string, maxActions int, window time.Duration) gin.HandlerFunc {
	counter := newWindowCounter("user_rl:"+action+":", window)
	label := "user:" + action

	return func(c *gin.Context) {
		uid := UID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		val := counter.incr(c.Request.Context(), uid)

		c.Header("X-UserRateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-UserRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxActions)-val), 10))

		if val > int64(maxActions) {
			RLBlocked.WithLabelValues(label).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "Too many " + action + " requests",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(label).Inc()
		c.Next()
	}
}
