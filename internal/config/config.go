package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// DatabaseConfig holds the database connection information.
type DatabaseConfig struct {
	Type         string `yaml:"type"`
	DSN          string `yaml:"dsn"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// AdminConfig holds the credentials for the admin API.
type AdminConfig struct {
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
}

// QuotaConfig bounds calls to the metered image search API.
type QuotaConfig struct {
	DailyLimit int `yaml:"daily_limit"`
	// BatchCap limits how many calls a single batch may make regardless of
	// the remaining daily allowance.
	BatchCap  int    `yaml:"batch_cap"`
	CallDelay string `yaml:"call_delay"`
	Timezone  string `yaml:"timezone"`
}

// ImageSearchConfig configures the external image search API.
type ImageSearchConfig struct {
	APIKey         string `yaml:"api_key"`
	EngineID       string `yaml:"engine_id"`
	Endpoint       string `yaml:"endpoint"`
	ResultsPerItem int    `yaml:"results_per_item"`
	Timeout        string `yaml:"timeout"`
}

// GenerationConfig configures description generation.
type GenerationConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// StorageConfig selects where uploaded images are kept.
type StorageConfig struct {
	Type           string `yaml:"type"` // "local" or "s3"
	LocalBaseDir   string `yaml:"local_base_dir"`
	LocalPublicURL string `yaml:"local_public_url"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3PublicURL    string `yaml:"s3_public_url"`
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	ImageFetchSpec  string `yaml:"image_fetch_spec"`
	ImageFetchLimit int    `yaml:"image_fetch_limit"`
}

// ImportConfig holds configuration for bulk uploads.
type ImportConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// Config holds the configuration for the catalogue service.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Admin       AdminConfig       `yaml:"admin"`
	Quota       QuotaConfig       `yaml:"quota"`
	ImageSearch ImageSearchConfig `yaml:"image_search"`
	Generation  GenerationConfig  `yaml:"generation"`
	Storage     StorageConfig     `yaml:"storage"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Import      ImportConfig      `yaml:"import"`
	Port        int               `yaml:"port"`
	Debug       bool              `yaml:"debug"`
}

// CallDelayDuration returns the configured pause between metered calls.
func (q QuotaConfig) CallDelayDuration() time.Duration {
	d, err := time.ParseDuration(q.CallDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// Location returns the time zone used to compute the quota day.
func (q QuotaConfig) Location() *time.Location {
	if q.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TimeoutDuration returns the HTTP timeout for search calls.
func (s ImageSearchConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// LoadConfig reads and parses the configuration file. It returns the config and a potential warning message.
var LoadConfig = func(path string) (*Config, string, error) {
	var config Config
	var warning string

	data, err := os.ReadFile(path)
	if err == nil {
		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, "", fmt.Errorf("failed to read config file: %w", err)
	}
	// A missing file is fine; environment variables and defaults fill the gaps.

	applyDefaults(&config)

	if dsn := os.Getenv("STUDIOGEAR_DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if dbType := os.Getenv("STUDIOGEAR_DATABASE_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if port := os.Getenv("STUDIOGEAR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if password := os.Getenv("STUDIOGEAR_ADMIN_PASSWORD"); password != "" {
		config.Admin.Password = password
	}
	if key := os.Getenv("STUDIOGEAR_ADMIN_KEY"); key != "" {
		config.Admin.Key = key
	}
	if key := os.Getenv("STUDIOGEAR_IMAGE_SEARCH_API_KEY"); key != "" {
		config.ImageSearch.APIKey = key
	}
	if cx := os.Getenv("STUDIOGEAR_IMAGE_SEARCH_ENGINE_ID"); cx != "" {
		config.ImageSearch.EngineID = cx
	}
	if key := os.Getenv("STUDIOGEAR_GENERATION_API_KEY"); key != "" {
		config.Generation.APIKey = key
	}
	if limit := os.Getenv("STUDIOGEAR_QUOTA_DAILY_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			config.Quota.DailyLimit = l
		}
	}
	if debug := os.Getenv("STUDIOGEAR_DEBUG"); debug != "" {
		config.Debug = (debug == "true")
	}

	if config.Quota.DailyLimit == 0 {
		config.Quota.DailyLimit = 100
		warning = "quota.daily_limit not set, using default value of 100"
	}

	if config.Database.Type == "" || config.Database.DSN == "" {
		return nil, "", fmt.Errorf("database type and dsn must be configured in config.yaml or via environment variables")
	}
	if config.Admin.Password == "" && config.Admin.Key == "" {
		return nil, "", fmt.Errorf("admin password or admin key must be configured")
	}

	return &config, warning, nil
}

func applyDefaults(c *Config) {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Quota.BatchCap == 0 {
		c.Quota.BatchCap = 10
	}
	if c.Quota.CallDelay == "" {
		c.Quota.CallDelay = "1s"
	}
	if c.ImageSearch.ResultsPerItem == 0 {
		c.ImageSearch.ResultsPerItem = 3
	}
	if c.ImageSearch.Timeout == "" {
		c.ImageSearch.Timeout = "10s"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gemini-1.5-flash"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.LocalBaseDir == "" {
		c.Storage.LocalBaseDir = "./uploads"
	}
	if c.Storage.LocalPublicURL == "" {
		c.Storage.LocalPublicURL = "/images"
	}
	if c.Storage.S3Region == "" {
		c.Storage.S3Region = "us-east-1"
	}
	if c.Scheduler.ImageFetchSpec == "" {
		c.Scheduler.ImageFetchSpec = "@daily"
	}
	if c.Scheduler.ImageFetchLimit == 0 {
		c.Scheduler.ImageFetchLimit = 10
	}
	if c.Import.QueueSize == 0 {
		c.Import.QueueSize = 100
	}
}
