// Package catalog runs bulk gear imports: parsing pasted text, filling in
// descriptions, persisting the results and scheduling image fetches.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"studiogear/internal/describe"
	"studiogear/internal/metrics"
	"studiogear/internal/model"
	"studiogear/internal/parser"

	"gorm.io/gorm"
)

// GearStore is the persistence the importer needs.
type GearStore interface {
	CreateGear(ctx context.Context, gear *model.Gear) error
}

// Enqueuer accepts gear for background image fetching.
type Enqueuer interface {
	Enqueue(gear model.Gear) bool
}

// ImportOptions selects the optional steps of an import.
type ImportOptions struct {
	FetchImages          bool `json:"fetchImages"`
	GenerateDescriptions bool `json:"generateDescriptions"`
}

// ReviewItem is a persisted record that still needs a human to classify it.
type ReviewItem struct {
	Line   int    `json:"line"`
	ID     string `json:"id"`
	Brand  string `json:"brand"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportReport always carries the created count, the per-line errors and
// the review list together.
type ImportReport struct {
	Created int          `json:"created"`
	GearIDs []string     `json:"gearIds"`
	Errors  []string     `json:"errors"`
	Review  []ReviewItem `json:"review"`
	Skipped int          `json:"skipped"`
	Queued  int          `json:"queued"`
}

// Importer turns pasted text into persisted gear.
type Importer struct {
	store     GearStore
	describer describe.Describer
	queue     Enqueuer
	ids       *parser.IDGenerator
	logger    *slog.Logger
	parser    *parser.Parser
}

// ImporterOption customises an Importer.
type ImporterOption func(*Importer)

// WithParser replaces the default parser.
func WithParser(p *parser.Parser) ImporterOption {
	return func(i *Importer) { i.parser = p }
}

// WithIDGenerator replaces the generator used when an id collides.
func WithIDGenerator(g *parser.IDGenerator) ImporterOption {
	return func(i *Importer) { i.ids = g }
}

// NewImporter creates an Importer. describer and queue may be nil, in which
// case descriptions keep their placeholder and FetchImages is ignored.
func NewImporter(store GearStore, describer describe.Describer, queue Enqueuer, logger *slog.Logger, opts ...ImporterOption) *Importer {
	imp := &Importer{
		store:     store,
		describer: describer,
		queue:     queue,
		ids:       parser.NewIDGenerator(),
		logger:    logger.With("component", "catalog"),
	}
	for _, opt := range opts {
		opt(imp)
	}
	if imp.parser == nil {
		imp.parser = parser.New(parser.WithIDGenerator(imp.ids))
	}
	return imp
}

// Import parses text and persists every usable line. A failure on one line
// is reported and the rest of the batch continues. The returned error is
// only set when ctx is cancelled before the batch is done.
func (i *Importer) Import(ctx context.Context, text string, opts ImportOptions) (*ImportReport, error) {
	res := i.parser.Parse(text)

	report := &ImportReport{
		GearIDs: []string{},
		Errors:  []string{},
		Review:  []ReviewItem{},
		Skipped: res.Skipped,
	}
	metrics.ImportLines.WithLabelValues("skipped").Add(float64(res.Skipped))

	reasons := make(map[int]string, len(res.Errors))
	for _, e := range res.Errors {
		reasons[e.Line] = e.Reason
		// Review lines are listed under Review, not Errors.
		if !isReviewLine(res.Review, e.Line) {
			report.Errors = append(report.Errors, e.Error())
		}
	}

	var created []model.Gear
	persist := func(cand parser.Candidate) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cand.PlaceholderDescription && opts.GenerateDescriptions && i.describer != nil {
			if desc, err := i.describer.Describe(ctx, cand.Gear()); err != nil {
				i.logger.Warn("Description generation failed, keeping placeholder", "line", cand.Line, "error", err)
			} else {
				cand.Description = desc
			}
		}

		gear := cand.Gear()
		if err := i.create(ctx, &gear); err != nil {
			metrics.ImportLines.WithLabelValues("failed").Inc()
			report.Errors = append(report.Errors, parser.LineError{Line: cand.Line, Reason: err.Error()}.Error())
			return nil
		}

		report.Created++
		report.GearIDs = append(report.GearIDs, gear.ID)
		if gear.NeedsReview {
			metrics.ImportLines.WithLabelValues("review").Inc()
			report.Review = append(report.Review, ReviewItem{
				Line:   cand.Line,
				ID:     gear.ID,
				Brand:  gear.Brand,
				Name:   gear.Name,
				Reason: reasons[cand.Line],
			})
		} else {
			metrics.ImportLines.WithLabelValues("created").Inc()
			created = append(created, gear)
		}
		return nil
	}

	for _, cand := range mergeByLine(res.Candidates, res.Review) {
		if err := persist(cand); err != nil {
			return report, fmt.Errorf("import interrupted: %w", err)
		}
	}

	if opts.FetchImages && i.queue != nil {
		for _, gear := range created {
			if i.queue.Enqueue(gear) {
				report.Queued++
			}
		}
	}

	i.logger.Info("Bulk import finished",
		"created", report.Created,
		"review", len(report.Review),
		"errors", len(report.Errors),
		"skipped", report.Skipped,
		"queued", report.Queued,
	)
	return report, nil
}

// create inserts gear, regenerating its id once if it collides.
func (i *Importer) create(ctx context.Context, gear *model.Gear) error {
	err := i.store.CreateGear(ctx, gear)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	old := gear.ID
	gear.ID = i.ids.New(gear.Brand, gear.Name)
	i.logger.Warn("Gear id collision, retrying with a new id", "old_id", old, "new_id", gear.ID)
	if err := i.store.CreateGear(ctx, gear); err != nil {
		return fmt.Errorf("failed to save %s: %w", gear.ID, err)
	}
	return nil
}

func isReviewLine(review []parser.Candidate, line int) bool {
	for _, c := range review {
		if c.Line == line {
			return true
		}
	}
	return false
}

// mergeByLine interleaves two line-ordered slices back into input order.
func mergeByLine(a, b []parser.Candidate) []parser.Candidate {
	out := make([]parser.Candidate, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if a[0].Line < b[0].Line {
			out, a = append(out, a[0]), a[1:]
		} else {
			out, b = append(out, b[0]), b[1:]
		}
	}
	out = append(out, a...)
	return append(out, b...)
}
