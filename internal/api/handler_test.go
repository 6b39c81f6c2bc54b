package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studiogear/internal/config"
	"studiogear/internal/db"
	"studiogear/internal/imagesearch"
	"studiogear/internal/model"
	"studiogear/internal/quota"
	"studiogear/internal/storage"
	"studiogear/internal/storage/drivers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupRealDB(t *testing.T) db.Service {
	t.Helper()
	service, err := db.NewService(config.DatabaseConfig{
		Type: "sqlite",
		DSN:  "file::memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })
	return service
}

func setupRouter(t *testing.T) (*gin.Engine, db.Service, *storage.ImageStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service := setupRealDB(t)
	driver, err := drivers.NewLocalFSDriver(t.TempDir(), "/images")
	require.NoError(t, err)
	images := storage.NewImageStore(driver, testLogger)

	router := gin.New()
	SetupRoutes(router, NewHandler(service, images, testLogger))
	return router, service, images
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func seed(t *testing.T, service db.Service) {
	t.Helper()
	ctx := context.Background()
	gear := []model.Gear{
		{ID: "fender-strat", Name: "Stratocaster", Brand: "Fender", Category: "guitar", Subcategory: "electric", Tags: []string{"vintage"}},
		{ID: "shure-sm57", Name: "SM57", Brand: "Shure", Category: "microphone", Subcategory: "dynamic", Tags: []string{"workhorse"}},
		{ID: "mystery", Name: "Box", Brand: "Mystery", Category: model.ReviewCategory, NeedsReview: true},
	}
	for i := range gear {
		require.NoError(t, service.CreateGear(ctx, &gear[i]))
	}
}

func TestListGearHandler(t *testing.T) {
	router, service, _ := setupRouter(t)
	seed(t, service)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"fender-strat", "shure-sm57", "mystery"}},
		{"category", "?category=microphone", []string{"shure-sm57"}},
		{"text", "?q=strat", []string{"fender-strat"}},
		{"tag", "?tag=workhorse", []string{"shure-sm57"}},
		{"review", "?review=true", []string{"mystery"}},
		{"limit", "?limit=1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(router, "/api/gear"+tt.query)
			require.Equal(t, http.StatusOK, resp.Code)

			var result model.GearListResult
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
			if tt.want == nil {
				assert.Len(t, result.Gear, 1)
				assert.EqualValues(t, 3, result.TotalCount)
				return
			}
			var ids []string
			for _, g := range result.Gear {
				ids = append(ids, g.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}

	for _, bad := range []string{"?limit=abc", "?offset=-1", "?review=maybe"} {
		resp := get(router, "/api/gear"+bad)
		assert.Equal(t, http.StatusBadRequest, resp.Code, bad)
	}
}

func TestGetGearHandler(t *testing.T) {
	router, service, _ := setupRouter(t)
	seed(t, service)

	resp := get(router, "/api/gear/shure-sm57")
	require.Equal(t, http.StatusOK, resp.Code)
	var gear model.Gear
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &gear))
	assert.Equal(t, "SM57", gear.Name)

	resp = get(router, "/api/gear/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCategoriesHandler(t *testing.T) {
	router, service, _ := setupRouter(t)
	seed(t, service)

	resp := get(router, "/api/categories")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Version     string         `json:"version"`
		Categories  []CategoryInfo `json:"categories"`
		NeedsReview int64          `json:"needsReview"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Version)
	assert.EqualValues(t, 1, body.NeedsReview)
	require.NotEmpty(t, body.Categories)
	assert.Equal(t, "guitar", body.Categories[0].Name)
	assert.EqualValues(t, 1, body.Categories[0].Count)
}

func TestProjectHandlers(t *testing.T) {
	router, service, _ := setupRouter(t)
	seed(t, service)
	ctx := context.Background()

	project := &model.Project{Name: "Album", Status: model.ProjectStatusTracking}
	require.NoError(t, service.CreateProject(ctx, project))
	require.NoError(t, service.AddGearToProject(ctx, project.ID, []string{"shure-sm57"}))

	resp := get(router, "/api/projects")
	require.Equal(t, http.StatusOK, resp.Code)
	var projects []model.Project
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &projects))
	assert.Len(t, projects, 1)

	resp = get(router, fmt.Sprintf("/api/projects/%d", project.ID))
	require.Equal(t, http.StatusOK, resp.Code)
	var got model.Project
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Gear, 1)
	assert.Equal(t, "shure-sm57", got.Gear[0].ID)

	assert.Equal(t, http.StatusBadRequest, get(router, "/api/projects/abc").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/projects/999").Code)
}

func TestImageHandler(t *testing.T) {
	router, _, images := setupRouter(t)

	stored, err := images.Upload(context.Background(), "amp.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)

	resp := get(router, "/images/"+stored.Key)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "png-bytes", resp.Body.String())
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, get(router, "/images/missing.png").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/images/a/b.png").Code)
}

// signedImages hands out direct links instead of streaming.
type signedImages struct {
	linkErr error
}

func (s signedImages) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("streamed")), "image/jpeg", nil
}

func (s signedImages) DirectLink(ctx context.Context, key string) (string, error) {
	if s.linkErr != nil {
		return "", s.linkErr
	}
	return "https://bucket.example/" + key + "?X-Amz-Signature=sig", nil
}

func TestImageHandler_DirectLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := setupRealDB(t)

	router := gin.New()
	SetupRoutes(router, NewHandler(service, signedImages{}, testLogger))
	resp := get(router, "/images/k.jpg")
	assert.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "https://bucket.example/k.jpg?X-Amz-Signature=sig", resp.Header().Get("Location"))

	// A signing failure falls back to streaming.
	router = gin.New()
	SetupRoutes(router, NewHandler(service, signedImages{linkErr: errors.New("no credentials")}, testLogger))
	resp = get(router, "/images/k.jpg")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "streamed", resp.Body.String())
}

func TestHealthzAndMetrics(t *testing.T) {
	router, service, _ := setupRouter(t)

	assert.Equal(t, http.StatusOK, get(router, "/healthz").Code)

	resp := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")

	require.NoError(t, service.Close())
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/healthz").Code)
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", quota.ErrQuotaExceeded), http.StatusTooManyRequests},
		{fmt.Errorf("gear x: %w", db.ErrNotFound), http.StatusNotFound},
		{storage.ErrNotFound, http.StatusNotFound},
		{imagesearch.ErrNoResults, http.StatusNotFound},
		{gorm.ErrDuplicatedKey, http.StatusConflict},
		{storage.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(resp)
		c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
		RespondError(c, testLogger, tt.err)
		assert.Equal(t, tt.want, resp.Code, tt.err.Error())
	}

	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	RespondError(c, testLogger, quota.ErrQuotaExceeded)
	assert.JSONEq(t, `{"error":"no image search calls available today","available":0}`, resp.Body.String())
}
