package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitors struct {
	mu    sync.Mutex
	store map[string]*visitor
	limit rate.Limit
	burst int
}

func (v *visitors) get(key string) *visitor {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, ok := v.store[key]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.store[key] = vis
	}
	vis.lastSeen = time.Now()
	return vis
}

func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.store)
}

// sweep drops visitors idle for longer than expiry every interval, and returns
// once ctx is cancelled.
func (v *visitors) sweep(ctx context.Context, interval, expiry time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.mu.Lock()
			for ip, vis := range v.store {
				if time.Since(vis.lastSeen) > expiry {
					delete(v.store, ip)
				}
			}
			v.mu.Unlock()
		}
	}
}

// RateLimiter allows maxRequests per window for each client IP. Idle entries
// are swept once a minute until ctx is cancelled.
func RateLimiter(ctx context.Context, maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	v := &visitors{
		store: make(map[string]*visitor),
		limit: rate.Every(window / time.Duration(maxRequests)),
		burst: maxRequests,
	}

	expiry := window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	go v.sweep(ctx, time.Minute, expiry)

	return func(c *gin.Context) {
		if !v.get(c.ClientIP()).limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests"})
			return
		}
		c.Next()
	}
}
