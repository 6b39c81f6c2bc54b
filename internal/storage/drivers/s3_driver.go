package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// immutableCache is sent with every object; keys are never reused.
const immutableCache = "public, max-age=31536000, immutable"

// S3Driver keeps images in an S3-compatible bucket. Objects are private
// unless BaseURL points at a public endpoint for the bucket.
type S3Driver struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	BaseURL   string
}

func NewS3Driver(client *s3.Client, bucket, baseURL string) *S3Driver {
	return &S3Driver{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

func (d *S3Driver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       &d.bucket,
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(immutableCache),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (d *S3Driver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &d.bucket, Key: aws.String(key)})
	var missing *types.NoSuchKey
	switch {
	case errors.As(err, &missing):
		return nil, "", fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	case err != nil:
		return nil, "", fmt.Errorf("s3 get %s: %w", key, err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return out.Body, contentType, nil
}

// Delete succeeds for keys that are already gone.
func (d *S3Driver) Delete(ctx context.Context, key string) error {
	if _, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &d.bucket, Key: aws.String(key)}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns a permanent link when the bucket is served publicly.
func (d *S3Driver) PublicURL(key string) string {
	if d.BaseURL == "" {
		return ""
	}
	return d.BaseURL + "/" + key
}

// Presign returns a GET link for key valid for ttl. A public bucket gets
// its permanent link instead.
func (d *S3Driver) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if u := d.PublicURL(key); u != "" {
		return u, nil
	}
	req, err := d.presigner.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &d.bucket, Key: aws.String(key)},
		s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return req.URL, nil
}
