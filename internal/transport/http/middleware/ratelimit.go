package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimiter hands out a token-bucket limiter per user. Buckets that go
// quiet are dropped by a background sweep so the map does not grow forever.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*userLimiter
	perMin   int
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[int64]*userLimiter),
		perMin:   perMinute,
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), rl.perMin),
		}
		rl.limiters[userID] = ul
	}
	ul.lastSeen = time.Now()
	return ul.limiter.Allow()
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for id, ul := range rl.limiters {
			if ul.lastSeen.Before(cutoff) {
				delete(rl.limiters, id)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects bursts with 429. Must run after AuthMiddleware.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")
		if !rl.allow(userID) {
			var body envelope
			body.Error.Message = "Too many requests, slow down"
			body.Error.Code = domain.CodeRateLimited
			c.AbortWithStatusJSON(http.StatusTooManyRequests, body)
			return
		}
		c.Next()
	}
}
