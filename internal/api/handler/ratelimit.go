package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// sweepInterval controls how often idle client buckets are discarded. A
// bucket idle longer than 3 sweep intervals is dropped.
const sweepInterval = time.Minute

// visitor tracks the token bucket and last activity of one client address.
type visitor struct {
	bucket *rate.Limiter
	seen   time.Time
}

// RateLimiter throttles requests per client IP with a token bucket: rps is
// the steady-state refill rate, burst the bucket capacity. Ingestion holds a
// ledger transaction open for its whole confirmation wait, so the server-wide
// rate is kept low and burst absorbs a normal upload-then-verify sequence.
//
// Idle buckets are swept periodically; the sweeper goroutine exits when ctx
// is cancelled at shutdown.
func RateLimiter(ctx context.Context, rps, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for ip, v := range visitors {
					if time.Since(v.seen) > 3*sweepInterval {
						delete(visitors, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
			visitors[ip] = v
		}
		v.seen = time.Now()
		allowed := v.bucket.Allow()
		mu.Unlock()

		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}
