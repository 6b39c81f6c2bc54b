package imagesearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studiogear/internal/metrics"
	"studiogear/internal/model"
	"studiogear/internal/parser"
	"studiogear/internal/quota"

	"golang.org/x/time/rate"
)

// ImageSaver persists images found for a gear.
type ImageSaver interface {
	AddGearImages(ctx context.Context, gearID string, images []model.GearImage) error
}

// FetcherConfig tunes a Fetcher.
type FetcherConfig struct {
	ResultsPerItem int
	// BatchCap bounds the calls one batch may make whatever the quota says.
	BatchCap int
	// CallDelay is the minimum spacing between external calls.
	CallDelay time.Duration
}

// Fetcher is the only path to the metered API. It checks the quota before
// every call, spaces calls out, and charges the quota only on success.
type Fetcher struct {
	searcher Searcher
	counter  quota.Counter
	saver    ImageSaver
	limiter  *rate.Limiter
	perItem  int
	batchCap int
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher. The limiter is shared by every caller of
// this Fetcher, so interactive, queued and scheduled fetches are spaced
// together.
func NewFetcher(searcher Searcher, counter quota.Counter, saver ImageSaver, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	limit := rate.Inf
	if cfg.CallDelay > 0 {
		limit = rate.Every(cfg.CallDelay)
	}
	perItem := cfg.ResultsPerItem
	if perItem <= 0 {
		perItem = 3
	}
	batchCap := cfg.BatchCap
	if batchCap <= 0 {
		batchCap = 10
	}
	return &Fetcher{
		searcher: searcher,
		counter:  counter,
		saver:    saver,
		limiter:  rate.NewLimiter(limit, 1),
		perItem:  perItem,
		batchCap: batchCap,
		logger:   logger.With("component", "imagesearch"),
	}
}

// Query builds the search text for a gear.
func Query(gear model.Gear) string {
	parts := make([]string, 0, 3)
	if gear.Brand != "" && gear.Brand != parser.UnknownBrand {
		parts = append(parts, gear.Brand)
	}
	parts = append(parts, gear.Name)
	if gear.Category != "" && gear.Category != model.ReviewCategory {
		parts = append(parts, gear.Category)
	}
	return strings.Join(parts, " ")
}

// FetchForGear performs one metered search for gear and stores the results.
// It returns quota.ErrQuotaExceeded without calling the API when nothing is
// left today.
func (f *Fetcher) FetchForGear(ctx context.Context, gear model.Gear) ([]model.GearImage, error) {
	avail, err := f.counter.CheckAvailability(ctx, 1)
	if err != nil {
		return nil, err
	}
	if !avail.Allowed {
		metrics.QuotaRejections.Inc()
		return nil, quota.ErrQuotaExceeded
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	results, err := f.searcher.Search(ctx, Query(gear), f.perItem)
	if err != nil {
		metrics.ImageSearchCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("image search for %s: %w", gear.ID, err)
	}
	metrics.ImageSearchCalls.WithLabelValues("ok").Inc()

	if err := f.counter.RecordUsage(ctx, 1); err != nil {
		// The call already happened; losing the increment undercounts by one.
		f.logger.Error("Failed to record image search usage", "gear_id", gear.ID, "error", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("gear %s: %w", gear.ID, ErrNoResults)
	}

	images := make([]model.GearImage, len(results))
	for i, r := range results {
		images[i] = model.GearImage{
			URL:          r.URL,
			ThumbnailURL: r.ThumbnailURL,
			Width:        r.Width,
			Height:       r.Height,
			Source:       r.Source,
		}
	}
	if err := f.saver.AddGearImages(ctx, gear.ID, images); err != nil {
		return nil, fmt.Errorf("failed to save images for %s: %w", gear.ID, err)
	}
	f.logger.Debug("Fetched images", "gear_id", gear.ID, "count", len(images))
	return images, nil
}

// ItemResult is the outcome for one gear in a batch.
type ItemResult struct {
	GearID string `json:"gearId"`
	Images int    `json:"images"`
	Error  string `json:"error,omitempty"`
}

// BatchReport summarises a FetchBatch run.
type BatchReport struct {
	Requested      int          `json:"requested"`
	Processed      int          `json:"processed"`
	Succeeded      int          `json:"succeeded"`
	Failed         int          `json:"failed"`
	QuotaExhausted bool         `json:"quotaExhausted"`
	CapReached     bool         `json:"capReached"`
	Canceled       bool         `json:"canceled"`
	Items          []ItemResult `json:"items"`
}

// FetchBatch fetches images for gears one at a time. The batch may spend at
// most min(available, batch cap) calls, and the quota is re-checked before
// every item. A failed item is recorded and the batch moves on; running out
// of quota or a cancelled context stops it with partial progress kept.
func (f *Fetcher) FetchBatch(ctx context.Context, gears []model.Gear) BatchReport {
	report := BatchReport{Requested: len(gears), Items: []ItemResult{}}
	if len(gears) == 0 {
		return report
	}

	avail, err := f.counter.CheckAvailability(ctx, 1)
	if err != nil {
		f.logger.Error("Failed to check quota before batch", "error", err)
		return report
	}
	if !avail.Allowed {
		metrics.QuotaRejections.Inc()
		report.QuotaExhausted = true
		return report
	}
	budget := min(avail.Available, f.batchCap)

	for _, gear := range gears {
		if ctx.Err() != nil {
			report.Canceled = true
			break
		}
		if budget == 0 {
			f.budgetSpent(ctx, &report)
			break
		}

		images, err := f.FetchForGear(ctx, gear)
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			report.QuotaExhausted = true
		case err != nil && ctx.Err() != nil:
			report.Canceled = true
		}
		if report.QuotaExhausted || report.Canceled {
			break
		}

		budget--
		report.Processed++
		item := ItemResult{GearID: gear.ID, Images: len(images)}
		if err != nil {
			item.Error = err.Error()
			report.Failed++
			f.logger.Warn("Image fetch failed", "gear_id", gear.ID, "error", err)
		} else {
			report.Succeeded++
		}
		report.Items = append(report.Items, item)
	}

	f.logger.Info("Image batch finished",
		"requested", report.Requested,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"quota_exhausted", report.QuotaExhausted,
		"cap_reached", report.CapReached,
		"canceled", report.Canceled,
	)
	return report
}

// budgetSpent decides why a batch with gear left ran out of budget: the
// daily quota when nothing is available any more, the batch cap otherwise.
func (f *Fetcher) budgetSpent(ctx context.Context, report *BatchReport) {
	avail, err := f.counter.CheckAvailability(ctx, 1)
	if err != nil {
		f.logger.Error("Failed to check quota after batch budget", "error", err)
		report.CapReached = true
		return
	}
	if !avail.Allowed {
		metrics.QuotaRejections.Inc()
		report.QuotaExhausted = true
		return
	}
	report.CapReached = true
}
