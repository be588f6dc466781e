// Package health tracks the store connection and gates requests while it is
// down. The process keeps serving health/status endpoints either way.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
)

// Checker pings the store on an interval and caches the result. A nil store
// (failed bootstrap) is permanently unhealthy.
type Checker struct {
	store    store.Store
	interval time.Duration

	mu      sync.RWMutex
	healthy bool
	lastErr error
}

// NewChecker creates a checker for the given store. The initial state is the
// result of one synchronous ping; call Start to keep it fresh.
func NewChecker(s store.Store, interval time.Duration, bootstrapErr error) *Checker {
	c := &Checker{store: s, interval: interval, lastErr: bootstrapErr}
	if s != nil && bootstrapErr == nil {
		c.check(context.Background())
	}
	return c
}

// Start launches the background ping loop; it stops when ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	if c.store == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.check(ctx)
			}
		}
	}()
}

func (c *Checker) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := c.store.Ping(pingCtx)

	c.mu.Lock()
	c.healthy = err == nil
	c.lastErr = err
	c.mu.Unlock()
}

// Healthy reports whether the last ping succeeded.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// Err returns the last ping or bootstrap error.
func (c *Checker) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Gate refuses every request passing through it while the store connection
// is unhealthy.
func Gate(c *Checker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !c.Healthy() {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"error":  "Error in connecting to database",
			})
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
