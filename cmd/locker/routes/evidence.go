package routes

import (
	"github.com/alibi/locker/cmd/locker/container"
	"github.com/alibi/locker/cmd/locker/middleware"
	commonmw "github.com/alibi/locker/common/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterEvidenceRoutes registers all evidence routes
func RegisterEvidenceRoutes(e *echo.Echo, c *container.Container) {
	cfg := c.Components.Config

	evidence := e.Group("/api/v1/evidence")
	evidence.Use(middleware.ExtractOwnerID()) // Opaque owner id from X-User-ID
	if c.RateLimiter != nil {
		evidence.Use(commonmw.UserRateLimitMiddleware(
			c.RateLimiter,
			cfg.RateLimit.UploadLimit,
			cfg.RateLimit.WindowSec,
		))
	}
	{
		evidence.POST("/upload", c.EvidenceHandler.Upload)     // POST /api/v1/evidence/upload
		evidence.GET("", c.EvidenceHandler.List)               // GET /api/v1/evidence
		evidence.GET("/:id", c.EvidenceHandler.Get)            // GET /api/v1/evidence/{id}
		evidence.GET("/:id/verify", c.EvidenceHandler.Verify)  // GET /api/v1/evidence/{id}/verify
		evidence.DELETE("/:id", c.EvidenceHandler.Delete)      // DELETE /api/v1/evidence/{id}
	}
}

// RegisterFileRoutes registers the file-serving endpoint used by the
// filesystem storage backend's locators
func RegisterFileRoutes(e *echo.Echo, c *container.Container) {
	if c.FileHandler == nil {
		return
	}

	files := e.Group("/api/v1/files")
	files.Use(middleware.ExtractOwnerID())
	{
		files.GET("/:owner/:filename", c.FileHandler.Serve) // GET /api/v1/files/{owner}/{filename}
	}
}
