package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"studiogear/internal/db"
	"studiogear/internal/imagesearch"
	"studiogear/internal/quota"
	"studiogear/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RespondError maps err onto an HTTP status and writes it as
// {"error": "..."}. Unexpected errors are logged and hidden from the client.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": quota.ErrQuotaExceeded.Error(), "available": 0})
	case errors.Is(err, db.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, imagesearch.ErrNoResults):
		c.JSON(http.StatusNotFound, gin.H{"error": "no images found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": "record already exists"})
	case errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	default:
		logger.ErrorContext(c.Request.Context(), "Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// UintParam reads a numeric path parameter, replying 400 when it is not one.
func UintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

func intQuery(c *gin.Context, name string) (*int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	return &v, true
}
