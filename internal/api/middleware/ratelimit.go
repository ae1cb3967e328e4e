package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterTTL = 10 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimit applies a token bucket per actor. Idle buckets are dropped
// lazily once they have been unused for limiterTTL.
func RateLimit(perSecond, burst int) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		buckets   = make(map[string]*bucket)
		lastSweep = time.Now()
	)
	return func(c *gin.Context) {
		key := c.GetString(TenantIDKey) + "\x00" + c.GetString(ActorIDKey)
		if c.GetString(ActorIDKey) == "" {
			key = "ip:" + c.ClientIP()
		}
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > limiterTTL {
			for k, b := range buckets {
				if now.Sub(b.seen) > limiterTTL {
					delete(buckets, k)
				}
			}
			lastSweep = now
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
			buckets[key] = b
		}
		b.seen = now
		allowed := b.lim.Allow()
		mu.Unlock()

		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
