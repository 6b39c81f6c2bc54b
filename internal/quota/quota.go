// Package quota enforces the shared daily ceiling on metered image search
// calls.
//
// Callers check availability, make the external call, and record usage only
// when the call succeeded. The check and the record are separate steps, so
// two concurrent callers that both observe one remaining call can both
// proceed and overshoot the limit by one. Batch callers bound this with a
// per-batch cap. Switching to a conditional increment belongs in Service.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiogear/internal/metrics"
)

// ErrQuotaExceeded means no metered calls are left for today.
var ErrQuotaExceeded = errors.New("no image search calls available today")

const dateLayout = "2006-01-02"

// Availability is a snapshot of today's quota.
type Availability struct {
	Allowed   bool   `json:"allowed"`
	Available int    `json:"available"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Date      string `json:"date"`
}

// Counter is the narrow interface every metered caller depends on.
type Counter interface {
	// CheckAvailability reports whether requested calls fit in what is left
	// today. It never reserves or increments anything.
	CheckAvailability(ctx context.Context, requested int) (Availability, error)
	// RecordUsage charges n successful calls to today.
	RecordUsage(ctx context.Context, n int) error
}

// Store persists one counter per calendar day.
type Store interface {
	GetQuotaUsage(ctx context.Context, date string) (int, error)
	IncrementQuotaUsage(ctx context.Context, date string, n int) error
}

// Service is the Store-backed Counter.
type Service struct {
	store Store
	limit int
	loc   *time.Location
	now   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService returns a Counter allowing dailyLimit calls per day.
func NewService(store Store, dailyLimit int, opts ...Option) *Service {
	s := &Service{
		store: store,
		limit: dailyLimit,
		loc:   time.Local,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the date key used for the current call.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

func (s *Service) CheckAvailability(ctx context.Context, requested int) (Availability, error) {
	date := s.Today()
	used, err := s.store.GetQuotaUsage(ctx, date)
	if err != nil {
		return Availability{}, fmt.Errorf("failed to check quota: %w", err)
	}
	remaining := max(0, s.limit-used)
	a := Availability{
		Allowed:   remaining >= requested,
		Available: remaining,
		Used:      used,
		Limit:     s.limit,
		Date:      date,
	}
	return a, nil
}

func (s *Service) RecordUsage(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("quota usage must be positive, got %d", n)
	}
	if err := s.store.IncrementQuotaUsage(ctx, s.Today(), n); err != nil {
		return fmt.Errorf("failed to record quota usage: %w", err)
	}
	metrics.QuotaCallsRecorded.Add(float64(n))
	return nil
}
