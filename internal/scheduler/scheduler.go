package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"studiogear/internal/imagesearch"
	"studiogear/internal/model"

	"github.com/robfig/cron/v3"
)

// GearSource lists gear that still has no images.
type GearSource interface {
	ListGearWithoutImages(ctx context.Context, limit int) ([]model.Gear, error)
}

// BatchFetcher runs a quota-governed image batch.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, gears []model.Gear) imagesearch.BatchReport
}

// Scheduler periodically backfills images for gear that has none.
type Scheduler struct {
	gear    GearSource
	fetcher BatchFetcher
	spec    string
	limit   int
	logger  *slog.Logger
	c       *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(gear GearSource, fetcher BatchFetcher, spec string, limit int, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gear:    gear,
		fetcher: fetcher,
		spec:    spec,
		limit:   limit,
		logger:  logger.With("component", "scheduler"),
		c:       cron.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the backfill job and starts the cron runner.
func (s *Scheduler) Start() error {
	_, err := s.c.AddFunc(s.spec, func() {
		s.RunImageBackfill(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("error scheduling image backfill %q: %w", s.spec, err)
	}
	s.c.Start()
	s.logger.Info("Scheduler started", "image_fetch_spec", s.spec, "image_fetch_limit", s.limit)
	return nil
}

// RunImageBackfill fetches images for up to limit gear without any.
func (s *Scheduler) RunImageBackfill(ctx context.Context) imagesearch.BatchReport {
	s.logger.Info("Running image backfill job.")
	gear, err := s.gear.ListGearWithoutImages(ctx, s.limit)
	if err != nil {
		s.logger.Error("Error listing gear without images", "error", err)
		return imagesearch.BatchReport{}
	}
	if len(gear) == 0 {
		s.logger.Info("No gear is missing images.")
		return imagesearch.BatchReport{Items: []imagesearch.ItemResult{}}
	}
	return s.fetcher.FetchBatch(ctx, gear)
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.c.Stop().Done()
}
