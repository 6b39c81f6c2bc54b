package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"studiogear/internal/catalog"
	"studiogear/internal/imagesearch"
	"studiogear/internal/quota"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
database:
  type: sqlite
  dsn: %q
admin:
  password: secret
quota:
  daily_limit: 5
  call_delay: 1ms
storage:
  type: local
  local_base_dir: %q
%s`, filepath.Join(dir, "gear.db"), filepath.Join(dir, "uploads"), extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeInput(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gear.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCustomRecovery_Panic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logBuf bytes.Buffer
	testLogger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	router := gin.New()
	router.Use(customRecovery(testLogger))
	router.GET("/", func(c *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, logBuf.String(), "Panic recovered")
	assert.Contains(t, logBuf.String(), "test panic")
}

func TestCustomRecovery_AbortHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logBuf bytes.Buffer
	testLogger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	router := gin.New()
	router.Use(customRecovery(testLogger))
	router.GET("/", func(c *gin.Context) {
		panic(http.ErrAbortHandler)
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, logBuf.String(), "Client connection aborted")
	assert.NotContains(t, logBuf.String(), "Panic recovered")
}

func TestImportAndQuotaCommands(t *testing.T) {
	cfg := writeConfig(t, "")
	input := writeInput(t, "Guitars:\nFender Stratocaster #vintage\n\nMics:\nShure SM57\nBogus:\nMystery Box")

	out, err := run(t, "--config", cfg, "import", input)
	require.NoError(t, err)

	var result struct {
		Import catalog.ImportReport `json:"import"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Import.Created)
	assert.Len(t, result.Import.Review, 1)
	assert.Empty(t, result.Import.Errors)

	out, err = run(t, "--config", cfg, "quota")
	require.NoError(t, err)
	var avail quota.Availability
	require.NoError(t, json.Unmarshal([]byte(out), &avail))
	assert.Equal(t, 5, avail.Limit)
	assert.Equal(t, 5, avail.Available)
	assert.True(t, avail.Allowed)
}

func TestImportCommand_Errors(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := run(t, "--config", cfg, "import")
	assert.Error(t, err, "a file argument is required")

	_, err = run(t, "--config", cfg, "import", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = run(t, "--config", cfg, "import", "--fetch-images", writeInput(t, "Mics:\nShure SM57"))
	assert.ErrorContains(t, err, "image search is not configured")

	_, err = run(t, "--config", cfg, "fetch-images")
	assert.ErrorContains(t, err, "image search is not configured")
}

func TestFetchImagesCommand(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items":[{"link":"https://img.example/a.jpg","title":"A","displayLink":"img.example",
			"image":{"thumbnailLink":"https://img.example/a_t.jpg","width":640,"height":480}}]}`)
	}))
	defer server.Close()

	cfg := writeConfig(t, fmt.Sprintf(`
image_search:
  api_key: search-key
  engine_id: engine
  endpoint: %q
`, server.URL+"/"))

	_, err := run(t, "--config", cfg, "import", writeInput(t, "Mics:\nShure SM57\nShure SM58"))
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "fetch-images", "--limit", "1")
	require.NoError(t, err)
	var report imagesearch.BatchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Requested)
	assert.Equal(t, 1, report.Succeeded)
	assert.EqualValues(t, 1, calls.Load())

	out, err = run(t, "--config", cfg, "quota")
	require.NoError(t, err)
	var avail quota.Availability
	require.NoError(t, json.Unmarshal([]byte(out), &avail))
	assert.Equal(t, 1, avail.Used)

	// The next run only sees the gear that is still missing images.
	out, err = run(t, "--config", cfg, "fetch-images")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Requested)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := writeConfig(t, "debug: true\n")
	a, err := newApp(context.Background(), cfg, logTo(io.Discard))
	require.NoError(t, err)
	defer a.close()
	router := a.newRouter(nil)

	tests := []struct {
		method string
		path   string
		auth   bool
		want   int
	}{
		{http.MethodGet, "/healthz", false, http.StatusOK},
		{http.MethodGet, "/api/gear", false, http.StatusOK},
		{http.MethodGet, "/api/categories", false, http.StatusOK},
		{http.MethodGet, "/admin/quota", false, http.StatusUnauthorized},
		{http.MethodGet, "/admin/quota", true, http.StatusOK},
		{http.MethodPost, "/admin/gear/x/images/fetch", true, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, tt.path, nil)
		if tt.auth {
			req.SetBasicAuth("admin", "secret")
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, tt.want, rr.Code, "%s %s", tt.method, tt.path)
	}
}
