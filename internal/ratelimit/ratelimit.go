// Package ratelimit provides per-identity, per-operation token bucket rate
// limiting for sensitive endpoints like registration and rotation.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sidevault/sidevault/internal/httputil"
)

// Limiter holds token buckets keyed by (identity, operation) with periodic
// cleanup of stale entries. Different operations get independent buckets so
// a burst of rotations cannot starve registrations.
type Limiter struct {
	buckets sync.Map // map[string]*bucketEntry
	rps     float64
	burst   int
	logger  *slog.Logger
}

type bucketEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// NewLimiter creates a Limiter and starts its cleanup loop, which stops when
// ctx is cancelled.
func NewLimiter(ctx context.Context, rps float64, burst int, logger *slog.Logger) *Limiter {
	l := &Limiter{
		rps:    rps,
		burst:  burst,
		logger: logger,
	}
	go l.cleanupStale(ctx, 5*time.Minute)
	return l
}

// Allow reports whether the (identity, operation) pair may proceed, and the
// suggested retry delay in seconds when it may not.
func (l *Limiter) Allow(identity, operation string) (bool, int) {
	limiter := l.getBucket(identity + "|" + operation)
	if limiter.Allow() {
		return true, 0
	}

	reservation := limiter.Reserve()
	retryAfter := int(reservation.Delay().Seconds()) + 1
	reservation.Cancel()
	return false, retryAfter
}

// Middleware enforces the limit on a gin route. identityFn extracts the
// rate limit key from the request, typically a user or session path param.
func (l *Limiter) Middleware(operation string, identityFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFn(c)
		if identity == "" {
			identity = c.ClientIP()
		}

		allowed, retryAfter := l.Allow(identity, operation)
		if !allowed {
			l.logger.Debug("rate limit exceeded",
				slog.String("identity", identity),
				slog.String("operation", operation),
				slog.Int("retry_after", retryAfter),
			)
			httputil.HandleRateLimitGin(c, retryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (l *Limiter) getBucket(key string) *rate.Limiter {
	if val, ok := l.buckets.Load(key); ok {
		entry := val.(*bucketEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &bucketEntry{
		limiter:    rate.NewLimiter(rate.Limit(l.rps), l.burst),
		lastAccess: time.Now(),
	}
	if existing, loaded := l.buckets.LoadOrStore(key, entry); loaded {
		return existing.(*bucketEntry).limiter
	}
	return entry.limiter
}

// cleanupStale drops buckets not touched within the last hour.
func (l *Limiter) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold := time.Now().Add(-1 * time.Hour)
			l.buckets.Range(func(key, value any) bool {
				entry := value.(*bucketEntry)
				entry.mu.Lock()
				stale := entry.lastAccess.Before(threshold)
				entry.mu.Unlock()
				if stale {
					l.buckets.Delete(key)
				}
				return true
			})
		}
	}
}
