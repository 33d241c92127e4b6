package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/smallbiznis/launchpad/internal/config"
)

// RateLimiter throttles requests per client IP. Limiters for clients not
// seen within the idle window are pruned so the map stays bounded.
type RateLimiter struct {
	perSecond  rate.Limit
	burst      int
	idleWindow time.Duration

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastPrune time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter from the configured requests-per-minute
// budget. A zero or negative budget disables throttling.
func NewRateLimiter(cfg config.Config) *RateLimiter {
	if cfg.RateLimitRPM <= 0 {
		return nil
	}

	burst := cfg.RateLimitRPM / 10
	if burst < 1 {
		burst = 1
	}
	window := cfg.RateLimitIdleWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	return &RateLimiter{
		perSecond:  rate.Limit(float64(cfg.RateLimitRPM) / 60.0),
		burst:      burst,
		idleWindow: window,
		visitors:   make(map[string]*visitor),
		lastPrune:  time.Now(),
	}
}

// Handler returns the gin middleware enforcing the budget.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !r.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limited",
				"error_description": "Too many requests. Please slow down.",
			})
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	entry, ok := r.visitors[key]
	if !ok {
		entry = &visitor{limiter: rate.NewLimiter(r.perSecond, r.burst)}
		r.visitors[key] = entry
	}
	entry.lastSeen = now

	if now.Sub(r.lastPrune) > r.idleWindow {
		r.pruneLocked(now)
	}
	r.mu.Unlock()

	return entry.limiter.Allow()
}

func (r *RateLimiter) pruneLocked(now time.Time) {
	for key, entry := range r.visitors {
		if now.Sub(entry.lastSeen) > r.idleWindow {
			delete(r.visitors, key)
		}
	}
	r.lastPrune = now
}
