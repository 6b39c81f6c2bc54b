package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpfile.Close()
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeTempConfig(t, `
port: 9090
debug: true
database:
  type: sqlite
  dsn: "file::memory:"
admin:
  password: secret
quota:
  daily_limit: 50
  batch_cap: 5
  call_delay: 250ms
image_search:
  api_key: search-key
  engine_id: engine
`)
		config, warning, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if warning != "" {
			t.Errorf("Expected no warning, got %q", warning)
		}
		if config.Port != 9090 {
			t.Errorf("Expected port 9090, got %d", config.Port)
		}
		if !config.Debug {
			t.Error("Expected debug to be true")
		}
		if config.Quota.DailyLimit != 50 || config.Quota.BatchCap != 5 {
			t.Errorf("Unexpected quota config: %+v", config.Quota)
		}
		if config.Quota.CallDelayDuration() != 250*time.Millisecond {
			t.Errorf("Expected 250ms call delay, got %v", config.Quota.CallDelayDuration())
		}
		if config.ImageSearch.ResultsPerItem != 3 {
			t.Errorf("Expected default results_per_item 3, got %d", config.ImageSearch.ResultsPerItem)
		}
		if config.Storage.Type != "local" {
			t.Errorf("Expected default storage type local, got %s", config.Storage.Type)
		}
	})

	t.Run("missing daily limit warns and defaults", func(t *testing.T) {
		path := writeTempConfig(t, `
database:
  type: sqlite
  dsn: "file::memory:"
admin:
  key: admin-key
`)
		config, warning, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if config.Quota.DailyLimit != 100 {
			t.Errorf("Expected default daily limit 100, got %d", config.Quota.DailyLimit)
		}
		if warning == "" {
			t.Error("Expected a warning about the default daily limit")
		}
	})

	t.Run("missing database", func(t *testing.T) {
		path := writeTempConfig(t, `admin: {password: x}`)
		_, _, err := LoadConfig(path)
		if err == nil {
			t.Error("Expected an error, but got nil")
		}
	})

	t.Run("missing admin credentials", func(t *testing.T) {
		path := writeTempConfig(t, "database:\n  type: sqlite\n  dsn: x\n")
		_, _, err := LoadConfig(path)
		if err == nil {
			t.Error("Expected an error, but got nil")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "database: [sqlite\nport: 8080\n  debug: true")
		_, _, err := LoadConfig(path)
		if err == nil {
			t.Error("Expected an error for invalid YAML, but got nil")
		}
	})

	t.Run("bad durations fall back", func(t *testing.T) {
		q := QuotaConfig{CallDelay: "soon"}
		if q.CallDelayDuration() != time.Second {
			t.Errorf("Expected 1s fallback, got %v", q.CallDelayDuration())
		}
		s := ImageSearchConfig{Timeout: "never"}
		if s.TimeoutDuration() != 10*time.Second {
			t.Errorf("Expected 10s fallback, got %v", s.TimeoutDuration())
		}
	})
}

func TestConfigPriority(t *testing.T) {
	t.Run("env vars should override file config", func(t *testing.T) {
		path := writeTempConfig(t,
			"port: 8000\n"+
				"debug: false\n"+
				"database:\n"+
				"  type: \"file-db\"\n"+
				"  dsn: \"file-dsn\"\n"+
				"admin:\n"+
				"  password: \"file-password\"\n"+
				"quota:\n"+
				"  daily_limit: 10\n")

		t.Setenv("STUDIOGEAR_PORT", "9000")
		t.Setenv("STUDIOGEAR_DEBUG", "true")
		t.Setenv("STUDIOGEAR_DATABASE_TYPE", "env-db")
		t.Setenv("STUDIOGEAR_DATABASE_DSN", "env-dsn")
		t.Setenv("STUDIOGEAR_ADMIN_PASSWORD", "env-password")
		t.Setenv("STUDIOGEAR_ADMIN_KEY", "env-key")
		t.Setenv("STUDIOGEAR_QUOTA_DAILY_LIMIT", "250")
		t.Setenv("STUDIOGEAR_IMAGE_SEARCH_API_KEY", "env-search")

		config, _, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}

		if config.Port != 9000 {
			t.Errorf("Expected port from env (9000), but got %d", config.Port)
		}
		if !config.Debug {
			t.Error("Expected debug from env (true), but got false")
		}
		if config.Database.Type != "env-db" {
			t.Errorf("Expected db type from env ('env-db'), but got %s", config.Database.Type)
		}
		if config.Database.DSN != "env-dsn" {
			t.Errorf("Expected db dsn from env ('env-dsn'), but got %s", config.Database.DSN)
		}
		if config.Admin.Password != "env-password" || config.Admin.Key != "env-key" {
			t.Errorf("Expected admin credentials from env, got %+v", config.Admin)
		}
		if config.Quota.DailyLimit != 250 {
			t.Errorf("Expected daily limit from env (250), but got %d", config.Quota.DailyLimit)
		}
		if config.ImageSearch.APIKey != "env-search" {
			t.Errorf("Expected search key from env, got %s", config.ImageSearch.APIKey)
		}
	})
}
