package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// InFlight rejects a request while another one from the same actor is
// still being handled. Requests are not queued.
func InFlight() gin.HandlerFunc {
	var (
		mu     sync.Mutex
		active = make(map[string]struct{})
	)
	return func(c *gin.Context) {
		key := c.GetString(TenantIDKey) + "\x00" + c.GetString(ActorIDKey)

		mu.Lock()
		if _, busy := active[key]; busy {
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "still processing your previous command", "code": "in_flight"})
			return
		}
		active[key] = struct{}{}
		mu.Unlock()

		defer func() {
			mu.Lock()
			delete(active, key)
			mu.Unlock()
		}()
		c.Next()
	}
}
