package middleware

import (
	"net/http"

	"github.com/alibi/locker/common/ratelimit"
	"github.com/labstack/echo/v4"
)

// UserRateLimitMiddleware checks per-owner upload rate limits.
// Requires the owner id to be set in context by the auth middleware.
// On limiter errors the request is allowed (fail open for availability).
func UserRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ownerID, ok := c.Get("owner_id").(string)
			if !ok || ownerID == "" {
				// No owner in context, nothing to scope the limit by
				return next(c)
			}

			result, err := rateLimiter.CheckUserLimit(c.Request().Context(), ownerID, limit, windowSec)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "You have exceeded your upload quota. Please wait before trying again.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
