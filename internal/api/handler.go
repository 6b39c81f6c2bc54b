// Package api serves the public, read-only catalogue endpoints.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studiogear/internal/db"
	"studiogear/internal/model"
	"studiogear/internal/parser"

	"github.com/gin-gonic/gin"
)

// ImageSource serves stored uploads.
type ImageSource interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	DirectLink(ctx context.Context, key string) (string, error)
}

type Handler struct {
	db     db.Service
	images ImageSource
	logger *slog.Logger
}

func NewHandler(dbService db.Service, images ImageSource, logger *slog.Logger) *Handler {
	return &Handler{db: dbService, images: images, logger: logger.With("component", "api")}
}

func (h *Handler) ListGearHandler(c *gin.Context) {
	filter := model.GearFilter{
		Query:       c.Query("q"),
		Category:    c.Query("category"),
		Subcategory: c.Query("subcategory"),
		Brand:       c.Query("brand"),
		Tag:         c.Query("tag"),
	}
	if raw := c.Query("review"); raw != "" {
		review, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review"})
			return
		}
		filter.NeedsReview = &review
	}
	var ok bool
	if filter.Offset, ok = intQuery(c, "offset"); !ok {
		return
	}
	if filter.Limit, ok = intQuery(c, "limit"); !ok {
		return
	}

	result, err := h.db.ListGear(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetGearHandler(c *gin.Context) {
	gear, err := h.db.GetGear(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gear)
}

// CategoryInfo is one taxonomy entry with its current gear count.
type CategoryInfo struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
	Count         int64    `json:"count"`
}

func (h *Handler) CategoriesHandler(c *gin.Context) {
	counts, err := h.db.CategoryCounts(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	categories := parser.Categories()
	out := make([]CategoryInfo, 0, len(categories))
	for _, cat := range categories {
		out = append(out, CategoryInfo{Name: cat.Name, Subcategories: cat.Subcategories, Count: counts[cat.Name]})
	}
	c.JSON(http.StatusOK, gin.H{
		"version":     parser.TaxonomyVersion,
		"categories":  out,
		"needsReview": counts[model.ReviewCategory],
	})
}

func (h *Handler) ListProjectsHandler(c *gin.Context) {
	projects, err := h.db.ListProjects(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) GetProjectHandler(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	project, err := h.db.GetProject(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// ImageHandler serves an uploaded image from the storage driver.
func (h *Handler) ImageHandler(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	ctx := c.Request.Context()
	link, err := h.images.DirectLink(ctx, key)
	if err != nil {
		h.logger.Warn("Failed to sign image link, streaming instead", "key", key, "error", err)
	}
	if link != "" {
		c.Redirect(http.StatusFound, link)
		return
	}

	reader, contentType, err := h.images.Download(ctx, key)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, reader, map[string]string{
		"Cache-Control": "public, max-age=86400",
	})
}

func (h *Handler) HealthzHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
