package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"studiogear/internal/api"
	"studiogear/internal/catalog"
	"studiogear/internal/db"
	"studiogear/internal/imagesearch"
	"studiogear/internal/metrics"
	"studiogear/internal/model"
	"studiogear/internal/parser"
	"studiogear/internal/quota"
	"studiogear/internal/storage"

	"github.com/gin-gonic/gin"
)

// Importer runs bulk text imports.
type Importer interface {
	Import(ctx context.Context, text string, opts catalog.ImportOptions) (*catalog.ImportReport, error)
}

// ImageFetcher is the quota-governed image search.
type ImageFetcher interface {
	FetchForGear(ctx context.Context, gear model.Gear) ([]model.GearImage, error)
	FetchBatch(ctx context.Context, gears []model.Gear) imagesearch.BatchReport
}

// ImageUploader stores uploaded image files.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, mimeType string) (*storage.StoredImage, error)
	Delete(ctx context.Context, key string) error
}

// Handler serves the admin API. fetcher may be nil when image search is not
// configured.
type Handler struct {
	db       db.Service
	importer Importer
	fetcher  ImageFetcher
	counter  quota.Counter
	images   ImageUploader
	ids      *parser.IDGenerator
	logger   *slog.Logger
}

func NewHandler(dbService db.Service, importer Importer, fetcher ImageFetcher, counter quota.Counter, images ImageUploader, logger *slog.Logger) *Handler {
	return &Handler{
		db:       dbService,
		importer: importer,
		fetcher:  fetcher,
		counter:  counter,
		images:   images,
		ids:      parser.NewIDGenerator(),
		logger:   logger.With("component", "admin"),
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	api.RespondError(c, h.logger, err)
}

// GearRequest creates or updates gear. On update, nil fields are left alone.
type GearRequest struct {
	Name           *string   `json:"name"`
	Brand          *string   `json:"brand"`
	Category       *string   `json:"category"`
	Subcategory    *string   `json:"subcategory"`
	Description    *string   `json:"description"`
	Tags           *[]string `json:"tags"`
	SoundTone      *[]string `json:"soundTone"`
	SoundQualities *[]string `json:"soundQualities"`
}

func (r GearRequest) apply(gear *model.Gear) {
	if r.Name != nil {
		gear.Name = *r.Name
	}
	if r.Brand != nil {
		gear.Brand = *r.Brand
	}
	if r.Category != nil {
		gear.Category = *r.Category
	}
	if r.Subcategory != nil {
		gear.Subcategory = *r.Subcategory
	}
	if r.Description != nil {
		gear.Description = *r.Description
	}
	if r.Tags != nil {
		gear.Tags = *r.Tags
	}
	if r.SoundTone != nil {
		gear.SoundTone = *r.SoundTone
	}
	if r.SoundQualities != nil {
		gear.SoundQualities = *r.SoundQualities
	}
}

// normalizeGear resolves the category and fills derived fields. It returns
// a message when the category is not usable.
func normalizeGear(gear *model.Gear) string {
	if gear.Category == "" {
		gear.Category = model.ReviewCategory
	}
	if gear.Category != model.ReviewCategory {
		resolved, ok := parser.ResolveCategory(gear.Category)
		if !ok {
			return "Unknown category: " + gear.Category
		}
		gear.Category = resolved
	}
	gear.NeedsReview = gear.Category == model.ReviewCategory
	if gear.NeedsReview {
		gear.Subcategory = ""
	} else if gear.Subcategory == "" {
		gear.Subcategory = parser.InferSubcategory(gear.Category, gear.Name+" "+gear.Description)
	}
	if gear.Brand == "" {
		gear.Brand = parser.UnknownBrand
	}
	if gear.Description == "" {
		gear.Description = parser.PlaceholderDescription(gear.Brand, gear.Name, gear.Category, gear.Subcategory)
	}
	return ""
}

func (h *Handler) CreateGearHandler(c *gin.Context) {
	var req GearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == nil || *req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	var gear model.Gear
	req.apply(&gear)
	if msg := normalizeGear(&gear); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	gear.ID = h.ids.New(gear.Brand, gear.Name)

	if err := h.db.CreateGear(c.Request.Context(), &gear); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gear)
}

func (h *Handler) UpdateGearHandler(c *gin.Context) {
	var req GearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name != nil && *req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
		return
	}

	ctx := c.Request.Context()
	gear, err := h.db.GetGear(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.Category != nil && req.Subcategory == nil {
		gear.Subcategory = ""
	}
	req.apply(gear)
	if msg := normalizeGear(gear); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.db.UpdateGear(ctx, gear); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gear)
}

func (h *Handler) DeleteGearHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	images, err := h.db.ListGearImages(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.db.DeleteGear(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	for _, img := range images {
		h.deleteBlob(ctx, img)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Gear deleted successfully"})
}

func (h *Handler) deleteBlob(ctx context.Context, img model.GearImage) {
	if img.StorageKey == "" {
		return
	}
	if err := h.images.Delete(ctx, img.StorageKey); err != nil {
		h.logger.Warn("Failed to delete stored image", "key", img.StorageKey, "error", err)
	}
}

// BulkRequest is the body of a bulk import.
type BulkRequest struct {
	Text                 string `json:"text"`
	FetchImages          bool   `json:"fetchImages"`
	GenerateDescriptions bool   `json:"generateDescriptions"`
}

func (h *Handler) BulkImportHandler(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text cannot be empty"})
		return
	}

	report, err := h.importer.Import(c.Request.Context(), req.Text, catalog.ImportOptions{
		FetchImages:          req.FetchImages,
		GenerateDescriptions: req.GenerateDescriptions,
	})
	if err != nil {
		h.logger.Warn("Bulk import interrupted", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import interrupted", "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) UploadImageHandler(c *gin.Context) {
	ctx := c.Request.Context()
	gearID := c.Param("id")
	if _, err := h.db.GetGear(ctx, gearID); err != nil {
		h.fail(c, err)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer src.Close()

	stored, err := h.images.Upload(ctx, file.Filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		h.fail(c, err)
		return
	}

	images := []model.GearImage{{
		URL:        stored.URL,
		Source:     model.ImageSourceUpload,
		StorageKey: stored.Key,
	}}
	if err := h.db.AddGearImages(ctx, gearID, images); err != nil {
		h.deleteBlob(ctx, images[0])
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, images[0])
}

func (h *Handler) DeleteImageHandler(c *gin.Context) {
	id, ok := api.UintParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	img, err := h.db.GetGearImage(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.db.DeleteGearImage(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	h.deleteBlob(ctx, *img)
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

func (h *Handler) SetPrimaryImageHandler(c *gin.Context) {
	id, ok := api.UintParam(c, "id")
	if !ok {
		return
	}
	if err := h.db.SetPrimaryImage(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Primary image updated"})
}

func (h *Handler) requireFetcher(c *gin.Context) bool {
	if h.fetcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image search is not configured"})
		return false
	}
	return true
}

func (h *Handler) FetchImagesHandler(c *gin.Context) {
	if !h.requireFetcher(c) {
		return
	}
	ctx := c.Request.Context()
	gear, err := h.db.GetGear(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	images, err := h.fetcher.FetchForGear(ctx, *gear)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gearId": gear.ID, "images": images})
}

// BatchFetchRequest selects gear for a batch fetch. Without ids, gear that
// has no images yet is picked, up to Limit.
type BatchFetchRequest struct {
	GearIDs []string `json:"gearIds"`
	Limit   int      `json:"limit"`
}

func (h *Handler) BatchFetchImagesHandler(c *gin.Context) {
	if !h.requireFetcher(c) {
		return
	}
	var req BatchFetchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	avail, err := h.counter.CheckAvailability(ctx, 1)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !avail.Allowed {
		metrics.QuotaRejections.Inc()
		h.fail(c, quota.ErrQuotaExceeded)
		return
	}

	var gear []model.Gear
	if len(req.GearIDs) > 0 {
		gear, err = h.db.ListGearByIDs(ctx, req.GearIDs)
	} else {
		limit := req.Limit
		if limit <= 0 {
			limit = 10
		}
		gear, err = h.db.ListGearWithoutImages(ctx, limit)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, h.fetcher.FetchBatch(ctx, gear))
}

func (h *Handler) QuotaHandler(c *gin.Context) {
	avail, err := h.counter.CheckAvailability(c.Request.Context(), 1)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// ProjectRequest creates or updates a project. On update, nil fields are
// left alone.
type ProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (r ProjectRequest) apply(p *model.Project) string {
	if r.Name != nil {
		if *r.Name == "" {
			return "Name cannot be empty"
		}
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Status != nil {
		status := model.ProjectStatus(*r.Status)
		if !status.Valid() {
			return "Invalid status: " + *r.Status
		}
		p.Status = status
	}
	return ""
}

func (h *Handler) CreateProjectHandler(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}
	var project model.Project
	if msg := req.apply(&project); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if err := h.db.CreateProject(c.Request.Context(), &project); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) UpdateProjectHandler(c *gin.Context) {
	id, ok := api.UintParam(c, "id")
	if !ok {
		return
	}
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ctx := c.Request.Context()
	project, err := h.db.GetProject(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if msg := req.apply(project); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if err := h.db.UpdateProject(ctx, project); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) DeleteProjectHandler(c *gin.Context) {
	id, ok := api.UintParam(c, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteProject(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// ProjectGearRequest lists gear to assign to a project.
type ProjectGearRequest struct {
	GearIDs []string `json:"gearIds"`
}

func (h *Handler) AddProjectGearHandler(c *gin.Context) {
	id, ok := api.UintParam(c, "id")
	if !ok {
		return
	}
	var req ProjectGearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.GearIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Gear ids list cannot be empty"})
		return
	}
	if err := h.db.AddGearToProject(c.Request.Context(), id, req.GearIDs); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Gear assigned successfully"})
}

func (h *Handler) RemoveProjectGearHandler(c *gin.Context) {
	id, ok := api.UintParam(c, "id")
	if !ok {
		return
	}
	if err := h.db.RemoveGearFromProject(c.Request.Context(), id, c.Param("gearId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Gear unassigned successfully"})
}
