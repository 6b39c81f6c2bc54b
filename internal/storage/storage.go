// Package storage keeps uploaded gear images in a pluggable blob store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"studiogear/internal/config"
	"studiogear/internal/storage/drivers"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a stored object does not exist.
	ErrNotFound = drivers.ErrObjectNotFound
	// ErrUnsupportedType rejects uploads that are not images.
	ErrUnsupportedType = errors.New("only image uploads are supported")
)

// ServePath is where the application serves stored images.
const ServePath = "/images"

// directLinkTTL bounds the presigned links handed out per request.
const directLinkTTL = 15 * time.Minute

// StorageDriver defines how we interact with the binary storage.
type StorageDriver interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) error
	// Get returns the content and its content type.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	// PublicURL returns a permanent link to key, or "" when the object is
	// only reachable through the application.
	PublicURL(key string) string
}

// Presigner is implemented by drivers that can sign short-lived links.
type Presigner interface {
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewStorageFromConfig creates the driver selected by cfg.Type.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (StorageDriver, error) {
	switch cfg.Type {
	case "local", "":
		logger.Info("Initializing local storage", "dir", cfg.LocalBaseDir)
		return drivers.NewLocalFSDriver(cfg.LocalBaseDir, cfg.LocalPublicURL)
	case "s3":
		logger.Info("Initializing S3 storage", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return drivers.NewS3Driver(client, cfg.S3Bucket, cfg.S3PublicURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// NewS3Client builds a path-style S3 client from the storage config.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// StoredImage describes an uploaded image.
type StoredImage struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// ImageStore coordinates image uploads on top of a driver.
type ImageStore struct {
	Driver StorageDriver
	logger *slog.Logger
}

func NewImageStore(driver StorageDriver, logger *slog.Logger) *ImageStore {
	return &ImageStore{Driver: driver, logger: logger.With("component", "storage")}
}

// URL returns the link stored with an image. It never expires: objects
// without a public link are served by the application under ServePath.
func (s *ImageStore) URL(key string) string {
	if u := s.Driver.PublicURL(key); u != "" {
		return u
	}
	return ServePath + "/" + key
}

// DirectLink returns a short-lived link to key when the driver can sign
// one, and "" when the image has to be streamed.
func (s *ImageStore) DirectLink(ctx context.Context, key string) (string, error) {
	p, ok := s.Driver.(Presigner)
	if !ok {
		return "", nil
	}
	return p.Presign(ctx, key, directLinkTTL)
}

// Upload stores an image under a fresh key.
func (s *ImageStore) Upload(ctx context.Context, filename string, reader io.Reader, size int64, mimeType string) (*StoredImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mime.TypeByExtension(ext)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrUnsupportedType
	}
	key := uuid.NewString() + ext

	if err := s.Driver.Save(ctx, key, reader, mimeType); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	s.logger.InfoContext(ctx, "Image uploaded", "key", key, "size", size)
	return &StoredImage{Key: key, URL: s.URL(key), Size: size, MimeType: mimeType}, nil
}

// Download streams a stored image.
func (s *ImageStore) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.Driver.Get(ctx, key)
}

// Delete removes a stored image. Missing objects are not an error.
func (s *ImageStore) Delete(ctx context.Context, key string) error {
	return s.Driver.Delete(ctx, key)
}
