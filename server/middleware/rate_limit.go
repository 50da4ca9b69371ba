// Package middleware holds HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter limits requests per client key.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter

	rps   rate.Limit
	burst int
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// per client with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		rps:    rate.Limit(rps),
		burst:  burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow reports whether a request for the given key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware returns an Echo middleware that limits requests per client
// IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
