package http

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/service"
)

const identityKey = "identity"

// Guard rejects requests without a valid session cookie and attaches the
// verified identity to the gin and request contexts
func Guard(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			abortWithError(c, core.ErrUnauthorized)
			return
		}

		id, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(core.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}

func identity(c *gin.Context) (core.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return core.Identity{}, false
	}
	id, ok := v.(core.Identity)
	return id, ok
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, exists := rl.limiters[key]
	if !exists {
		l = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = l
	}
	l.lastSeen = time.Now()

	return l.limiter
}

// Handler returns the rate limiting middleware handler
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if rl.getLimiter(key).Allow() {
			c.Next()
			return
		}

		rl.log.WithFields(logrus.Fields{
			"client": key,
			"path":   c.FullPath(),
		}).Warn("rate limit exceeded")

		retry := int(math.Ceil(1 / float64(rl.rate)))
		c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}

// Cleanup removes limiters idle for longer than idle
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-idle)
	for key, l := range rl.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// StartCleanup periodically drops idle limiters until done is closed
func (rl *RateLimiter) StartCleanup(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup(interval)
			case <-done:
				return
			}
		}
	}()
}
