package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alibi/locker/cmd/locker/middleware"
	"github.com/alibi/locker/cmd/locker/models"
	"github.com/alibi/locker/cmd/locker/service"
	"github.com/alibi/locker/common/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// EvidenceHandler handles evidence-related requests
type EvidenceHandler struct {
	log *logger.Logger
	svc *service.EvidenceService
}

// NewEvidenceHandler creates a new evidence handler
func NewEvidenceHandler(svc *service.EvidenceService, log *logger.Logger) *EvidenceHandler {
	return &EvidenceHandler{
		log: log,
		svc: svc,
	}
}

// itemResponse is the retrieval payload shape for a single record
type itemResponse struct {
	ID            uuid.UUID  `json:"id"`
	Title         *string    `json:"title"`
	Type          string     `json:"type"`
	Description   *string    `json:"description"`
	FileURL       *string    `json:"file_url"`
	FileSizeBytes int64      `json:"file_size_bytes"`
	ContentHash   string     `json:"content_hash"`
	Tags          []string   `json:"tags,omitempty"`
	CapturedAt    time.Time  `json:"captured_at"`
	TimestampedAt time.Time  `json:"timestamped_at"`
	Verified      bool       `json:"verified"`
}

func toItemResponse(item *service.Item) itemResponse {
	return itemResponse{
		ID:            item.ID,
		Title:         item.Title,
		Type:          string(item.ItemType),
		Description:   item.Description,
		FileURL:       item.FileURL,
		FileSizeBytes: item.SizeBytes,
		ContentHash:   item.ContentHash,
		Tags:          item.Tags,
		CapturedAt:    item.CapturedAt,
		TimestampedAt: item.TimestampedAt,
		Verified:      !item.TimestampedAt.IsZero(),
	}
}

// Upload ingests new evidence with a local timestamp attestation
// POST /api/v1/evidence/upload
func (h *EvidenceHandler) Upload(c echo.Context) error {
	ownerID, err := middleware.RequireOwnerID(c)
	if err != nil {
		return err
	}

	req := service.IngestRequest{
		OwnerID:  ownerID,
		ItemType: models.ItemType(formValueOr(c, "item_type", string(models.ItemTypePhoto))),
	}

	// The file part is optional: note and location items may carry
	// metadata only.
	if fh, fhErr := c.FormFile("file"); fhErr == nil {
		src, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable file part")
		}
		defer src.Close()

		content, err := io.ReadAll(src)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable file part")
		}

		req.Content = content
		req.Filename = fh.Filename
		req.ContentType = fh.Header.Get("Content-Type")
		if req.ContentType == "" {
			req.ContentType = "application/octet-stream"
		}
	}

	if title := c.FormValue("title"); title != "" {
		req.Title = &title
	}
	if description := c.FormValue("description"); description != "" {
		req.Description = &description
	}
	if locationName := c.FormValue("location_name"); locationName != "" {
		req.LocationName = &locationName
	}
	if tags := c.FormValue("tags"); tags != "" {
		req.Tags = splitTags(tags)
	}

	if capturedAt := c.FormValue("captured_at"); capturedAt != "" {
		parsed, err := time.Parse(time.RFC3339, capturedAt)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "captured_at must be RFC3339")
		}
		req.CapturedAt = &parsed
	}

	var badCoord bool
	req.Latitude, badCoord = parseFloatForm(c, "latitude")
	if badCoord {
		return echo.NewHTTPError(http.StatusBadRequest, "latitude must be a number")
	}
	req.Longitude, badCoord = parseFloatForm(c, "longitude")
	if badCoord {
		return echo.NewHTTPError(http.StatusBadRequest, "longitude must be a number")
	}

	result, err := h.svc.Ingest(c.Request().Context(), req)
	if err != nil {
		return h.mapError(c, err, "upload failed")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":             result.ID,
		"title":          result.Title,
		"content_hash":   result.ContentHash,
		"timestamped_at": result.TimestampedAt,
		"message":        "Evidence captured and timestamped successfully",
	})
}

// List returns all evidence for the authenticated owner
// GET /api/v1/evidence?filter=item.type == 'photo'
func (h *EvidenceHandler) List(c echo.Context) error {
	ownerID, err := middleware.RequireOwnerID(c)
	if err != nil {
		return err
	}

	items, err := h.svc.List(c.Request().Context(), ownerID, c.QueryParam("filter"))
	if err != nil {
		return h.mapError(c, err, "list failed")
	}

	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": responses,
		"total": len(responses),
	})
}

// Get returns a single evidence item
// GET /api/v1/evidence/:id
func (h *EvidenceHandler) Get(c echo.Context) error {
	ownerID, err := middleware.RequireOwnerID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid evidence id")
	}

	item, err := h.svc.Get(c.Request().Context(), ownerID, id)
	if err != nil {
		return h.mapError(c, err, "get failed")
	}

	return c.JSON(http.StatusOK, toItemResponse(item))
}

// Verify recomputes the stored content hash for an evidence item
// GET /api/v1/evidence/:id/verify
func (h *EvidenceHandler) Verify(c echo.Context) error {
	ownerID, err := middleware.RequireOwnerID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid evidence id")
	}

	result, err := h.svc.Verify(c.Request().Context(), ownerID, id)
	if err != nil {
		return h.mapError(c, err, "verify failed")
	}

	return c.JSON(http.StatusOK, result)
}

// Delete removes an evidence item and its stored object
// DELETE /api/v1/evidence/:id
func (h *EvidenceHandler) Delete(c echo.Context) error {
	ownerID, err := middleware.RequireOwnerID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid evidence id")
	}

	if err := h.svc.Delete(c.Request().Context(), ownerID, id); err != nil {
		return h.mapError(c, err, "delete failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Evidence deleted successfully",
	})
}

// mapError translates domain errors to HTTP responses
func (h *EvidenceHandler) mapError(c echo.Context, err error, msg string) error {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Evidence not found")
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	default:
		h.log.Error(msg, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, msg)
	}
}

func formValueOr(c echo.Context, name, fallback string) string {
	if v := c.FormValue(name); v != "" {
		return v
	}
	return fallback
}

// parseFloatForm returns the parsed value and whether the form value was
// present but malformed.
func parseFloatForm(c echo.Context, name string) (*float64, bool) {
	v := c.FormValue(name)
	if v == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, true
	}
	return &f, false
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
