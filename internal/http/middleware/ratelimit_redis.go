package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pixelcanvas/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter connects the shared Redis client used by the limiters.
// It returns nil when addr is empty or the server does not answer; the limiters then count in memory.
func InitRedisRateLimiter(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limits are per instance", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	SetRedisClient(rdb)
	return rdb
}

// SetRedisClient installs an already connected client, or nil to count in memory.
func SetRedisClient(rdb *redis.Client) {
	redisClient = rdb
}

// windowCounter counts hits in fixed windows using Redis INCR/EXPIRE, falling back to memory on error.
type windowCounter struct {
	prefix string
	window time.Duration
	mem    *memoryLimiter
}

func newWindowCounter(prefix string, window time.Duration) *windowCounter {
	return &windowCounter{prefix: prefix, window: window, mem: newMemoryLimiter(window)}
}

func (w *windowCounter) incr(ctx context.Context, ident string) int64 {
	rdb := redisClient
	if rdb == nil {
		return w.mem.incr(ident)
	}

	key := w.prefix + strconv.FormatInt(int64(w.window.Seconds()), 10) + ":" + ident
	val, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		logger.Debug("rate limiter redis error", "key", key, "error", err)
		return w.mem.incr(ident)
	}
	if val == 1 {
		rdb.Expire(ctx, key, w.window)
	}
	return val
}

// RedisRateLimit implements a fixed-window limit per client IP.
// key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	counter := newWindowCounter("rl:", window)
	return func(c *gin.Context) {
		val := counter.incr(c.Request.Context(), c.ClientIP())
		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
