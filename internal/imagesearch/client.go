// Package imagesearch wraps the metered external image search API.
package imagesearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// ErrNoResults is returned when a successful search found nothing.
var ErrNoResults = errors.New("image search returned no results")

// maxResultsPerCall is the most results the API returns for one request.
const maxResultsPerCall = 10

// Result describes one candidate image.
type Result struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Source       string `json:"source"`
	Title        string `json:"title"`
}

// Searcher performs one metered search call.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// CustomSearchClient searches images through the Custom Search JSON API.
type CustomSearchClient struct {
	svc      *customsearch.Service
	engineID string
	timeout  time.Duration
}

// ClientConfig configures a CustomSearchClient.
type ClientConfig struct {
	APIKey   string
	EngineID string
	// Endpoint overrides the API base URL.
	Endpoint string
	Timeout  time.Duration
}

// NewCustomSearchClient creates a client for the given search engine.
func NewCustomSearchClient(ctx context.Context, cfg ClientConfig) (*CustomSearchClient, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, errors.New("image search requires an api key and an engine id")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CustomSearchClient{svc: svc, engineID: cfg.EngineID, timeout: timeout}, nil
}

func (c *CustomSearchClient) Search(ctx context.Context, query string, count int) ([]Result, error) {
	count = min(max(count, 1), maxResultsPerCall)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.svc.Cse.List().
		Cx(c.engineID).
		Q(query).
		SearchType("image").
		Safe("active").
		Num(int64(count)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search request failed: %w", err)
	}

	results := make([]Result, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Link == "" {
			continue
		}
		r := Result{URL: item.Link, Source: item.DisplayLink, Title: item.Title}
		if item.Image != nil {
			r.ThumbnailURL = item.Image.ThumbnailLink
			r.Width = int(item.Image.Width)
			r.Height = int(item.Image.Height)
		}
		results = append(results, r)
	}
	return results, nil
}
