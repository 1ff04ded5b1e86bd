package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/alibi/locker/cmd/locker/middleware"
	"github.com/alibi/locker/common/logger"
	"github.com/alibi/locker/common/storage"
	"github.com/labstack/echo/v4"
)

// FileHandler serves stored objects for the filesystem backend. The S3
// backend hands out presigned URLs instead and never routes through here.
type FileHandler struct {
	log   *logger.Logger
	store storage.ObjectStore
}

// NewFileHandler creates a new file handler
func NewFileHandler(store storage.ObjectStore, log *logger.Logger) *FileHandler {
	return &FileHandler{
		log:   log,
		store: store,
	}
}

// Serve streams a stored object back to its owner
// GET /api/v1/files/:owner/:filename
func (h *FileHandler) Serve(c echo.Context) error {
	ownerID, err := middleware.RequireOwnerID(c)
	if err != nil {
		return err
	}

	// The owner namespace in the path must be the authenticated owner;
	// foreign paths are indistinguishable from missing files.
	if c.Param("owner") != ownerID {
		return echo.NewHTTPError(http.StatusNotFound, "File not found")
	}

	key := ownerID + "/" + c.Param("filename")

	content, err := h.store.Get(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "File not found")
		}
		h.log.Error("file read failed", "key", key, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "file read failed")
	}

	contentType := mime.TypeByExtension(filepath.Ext(c.Param("filename")))
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	return c.Blob(http.StatusOK, contentType, content)
}
