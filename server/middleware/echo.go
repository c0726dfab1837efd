package middleware

import (
	"github.com/labstack/echo/v4"

	studyerrors "github.com/hrygo/studyquest/server/internal/errors"
)

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(c echo.Context) string

// RateLimit rejects requests over the per-key limit with RATE_LIMIT_EXCEEDED.
// Requests with an empty key are keyed by client IP.
func RateLimit(rl *RateLimiter, keyFn KeyFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFn(c)
			if key == "" {
				key = "ip:" + c.RealIP()
			}
			if !rl.Allow(key) {
				return studyerrors.RateLimitExceeded("too many reviews, slow down")
			}
			return next(c)
		}
	}
}
