package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"studiogear/internal/metrics"
	"studiogear/internal/model"
	"studiogear/internal/quota"
)

// ImageFetcher is the metered fetch the queue drives.
type ImageFetcher interface {
	FetchForGear(ctx context.Context, gear model.Gear) ([]model.GearImage, error)
}

// ImageQueue fetches images for newly imported gear in the background, one
// item at a time, on a single worker goroutine.
type ImageQueue struct {
	fetcher ImageFetcher
	today   func() string
	logger  *slog.Logger

	queue  chan model.Gear
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	// exhaustedOn is the quota day on which the API last refused a call.
	exhaustedOn string
}

// QueueOption customises an ImageQueue.
type QueueOption func(*ImageQueue)

// WithToday sets the function that names the current quota day. It should
// agree with the quota counter's notion of a day.
func WithToday(today func() string) QueueOption {
	return func(q *ImageQueue) { q.today = today }
}

// NewImageQueue starts the worker. size is the channel buffer.
func NewImageQueue(fetcher ImageFetcher, size int, logger *slog.Logger, opts ...QueueOption) *ImageQueue {
	if size <= 0 {
		size = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &ImageQueue{
		fetcher: fetcher,
		today:   func() string { return time.Now().Format("2006-01-02") },
		logger:  logger.With("component", "image-queue"),
		queue:   make(chan model.Gear, size),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue schedules gear for a fetch. It never blocks and reports false
// when the queue is full or closed.
func (q *ImageQueue) Enqueue(gear model.Gear) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.queue <- gear:
		return true
	default:
		metrics.ImageQueueDropped.Inc()
		q.logger.Warn("Image queue is full, dropping fetch", "gear_id", gear.ID)
		return false
	}
}

// Len returns the number of gear waiting.
func (q *ImageQueue) Len() int {
	return len(q.queue)
}

func (q *ImageQueue) exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exhaustedOn != "" && q.exhaustedOn == q.today()
}

func (q *ImageQueue) worker() {
	defer q.wg.Done()
	q.logger.Info("Starting image queue worker.")

	for gear := range q.queue {
		if q.ctx.Err() != nil {
			continue
		}
		if q.exhausted() {
			q.logger.Debug("Quota exhausted for today, skipping fetch", "gear_id", gear.ID)
			continue
		}

		images, err := q.fetcher.FetchForGear(q.ctx, gear)
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			q.mu.Lock()
			q.exhaustedOn = q.today()
			q.mu.Unlock()
			q.logger.Warn("Image search quota exhausted, skipping queued fetches until tomorrow", "gear_id", gear.ID, "pending", len(q.queue))
		case err != nil:
			q.logger.Warn("Queued image fetch failed", "gear_id", gear.ID, "error", err)
		default:
			q.logger.Debug("Queued image fetch done", "gear_id", gear.ID, "images", len(images))
		}
	}
	q.logger.Info("Image queue worker stopped.")
}

// Close stops accepting work, abandons queued items and waits for the
// worker to exit.
func (q *ImageQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cancel()
	close(q.queue)
	q.mu.Unlock()
	q.wg.Wait()
}
