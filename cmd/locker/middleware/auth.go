package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// OwnerIDKey is the context key for the authenticated owner id
	OwnerIDKey ContextKey = "owner_id"
)

// ExtractOwnerID extracts the opaque, already-authenticated owner id from
// the X-User-ID header and stores it in the request context. The core
// performs no credential validation itself; the identity provider in
// front of this service is responsible for authenticating the value.
//
// Usage:
//
//	g := e.Group("/api/v1/evidence")
//	g.Use(middleware.ExtractOwnerID())
func ExtractOwnerID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ownerID := c.Request().Header.Get("X-User-ID")

			if ownerID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "X-User-ID header is required",
				})
			}

			c.Set(string(OwnerIDKey), ownerID)
			return next(c)
		}
	}
}

// GetOwnerID retrieves the owner id from the request context
// Returns empty string if not set
func GetOwnerID(c echo.Context) string {
	ownerID := c.Get(string(OwnerIDKey))
	if ownerID == nil {
		return ""
	}
	return ownerID.(string)
}

// RequireOwnerID ensures an owner id exists in context
// Returns an error response if not found
func RequireOwnerID(c echo.Context) (string, error) {
	ownerID := GetOwnerID(c)
	if ownerID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required (X-User-ID header missing)")
	}
	return ownerID, nil
}
