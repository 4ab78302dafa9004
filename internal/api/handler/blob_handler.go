package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// BlobReader reads objects held in process memory.
type BlobReader interface {
	Get(key string) ([]byte, string, bool)
}

// BlobHandler serves avatars when the in-memory blob store is in use.
type BlobHandler struct {
	blobs BlobReader
}

func NewBlobHandler(blobs BlobReader) *BlobHandler {
	return &BlobHandler{blobs: blobs}
}

// Get handles GET /blobs/*.
func (h *BlobHandler) Get(c echo.Context) error {
	key := strings.TrimPrefix(c.Param("*"), "/")
	data, contentType, ok := h.blobs.Get(key)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, contentType, data)
}
