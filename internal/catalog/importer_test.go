package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"studiogear/internal/config"
	"studiogear/internal/db"
	"studiogear/internal/metrics"
	"studiogear/internal/model"
	"studiogear/internal/parser"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockDescriber struct {
	mock.Mock
}

func (m *MockDescriber) Describe(ctx context.Context, gear model.Gear) (string, error) {
	args := m.Called(ctx, gear)
	return args.String(0), args.Error(1)
}

type recordingQueue struct {
	gear []model.Gear
	full bool
}

func (q *recordingQueue) Enqueue(gear model.Gear) bool {
	if q.full {
		return false
	}
	q.gear = append(q.gear, gear)
	return true
}

func setupStore(t *testing.T) db.Service {
	t.Helper()
	store, err := db.NewService(config.DatabaseConfig{Type: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func fixedIDs(suffix string) *parser.IDGenerator {
	return &parser.IDGenerator{
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
		Suffix: func() string { return suffix },
	}
}

func TestImport_EndToEnd(t *testing.T) {
	store := setupStore(t)
	queue := &recordingQueue{}
	imp := NewImporter(store, nil, queue, testLogger)
	ctx := context.Background()

	report, err := imp.Import(ctx, "Guitars:\nFender Stratocaster #vintage\n\nMics:\nShure SM57", ImportOptions{FetchImages: true})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Review)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.Queued)
	require.Len(t, report.GearIDs, 2)

	strat, err := store.GetGear(ctx, report.GearIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Fender", strat.Brand)
	assert.Equal(t, "guitar", strat.Category)
	assert.Contains(t, strat.Tags, "vintage")

	sm57, err := store.GetGear(ctx, report.GearIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "microphone", sm57.Category)
	assert.Len(t, sm57.Tags, 3)

	require.Len(t, queue.gear, 2)
	assert.Equal(t, report.GearIDs[0], queue.gear[0].ID)
}

func TestImport_ReportsReviewAndErrorsTogether(t *testing.T) {
	store := setupStore(t)
	imp := NewImporter(store, nil, &recordingQueue{}, testLogger)
	ctx := context.Background()

	text := strings.Join([]string{
		"Bogus Category:",
		"Mystery Box",
		"Amps:",
		"Marshall JCM800",
		"#onlytags",
		"Fender Deluxe | flux capacitors",
	}, "\n")
	report, err := imp.Import(ctx, text, ImportOptions{FetchImages: true})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Created)
	assert.Equal(t, []string{"line 5: missing item name"}, report.Errors)
	require.Len(t, report.Review, 2)
	assert.Equal(t, 2, report.Review[0].Line)
	assert.Equal(t, `unknown category "Bogus Category"`, report.Review[0].Reason)
	assert.Equal(t, 6, report.Review[1].Line)
	assert.Equal(t, `unknown category "flux capacitors"`, report.Review[1].Reason)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 1, report.Queued, "review items are not queued for images")

	needsReview := true
	list, err := store.ListGear(ctx, model.GearFilter{NeedsReview: &needsReview})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.TotalCount)
	for _, g := range list.Gear {
		assert.Equal(t, model.ReviewCategory, g.Category)
	}
}

func TestImport_RegeneratesCollidingID(t *testing.T) {
	store := setupStore(t)
	imp := NewImporter(store, nil, nil, testLogger,
		WithParser(parser.New(parser.WithIDGenerator(fixedIDs("aaaaaa")))),
		WithIDGenerator(fixedIDs("bbbbbb")),
	)
	ctx := context.Background()

	first, err := imp.Import(ctx, "Mics:\nShure SM57", ImportOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)
	assert.True(t, strings.HasSuffix(first.GearIDs[0], "-aaaaaa"))

	second, err := imp.Import(ctx, "Mics:\nShure SM57", ImportOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, second.Created)
	assert.True(t, strings.HasSuffix(second.GearIDs[0], "-bbbbbb"))

	before := testutil.ToFloat64(metrics.ImportLines.WithLabelValues("failed"))
	third, err := imp.Import(ctx, "Mics:\nShure SM57", ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, third.Created)
	require.Len(t, third.Errors, 1)
	assert.True(t, strings.HasPrefix(third.Errors[0], "line 2: "))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ImportLines.WithLabelValues("failed")))
}

func TestImport_GeneratesDescriptions(t *testing.T) {
	store := setupStore(t)
	describer := new(MockDescriber)
	describer.On("Describe", mock.Anything, mock.MatchedBy(func(g model.Gear) bool { return g.Name == "SM57" })).
		Return("A workhorse dynamic microphone.", nil).Once()
	describer.On("Describe", mock.Anything, mock.MatchedBy(func(g model.Gear) bool { return g.Name == "SM7B" })).
		Return("", errors.New("model unavailable")).Once()

	imp := NewImporter(store, describer, nil, testLogger)
	ctx := context.Background()

	text := "Mics:\nShure SM57\nShure SM7B\nShure Beta 52 | mic | Kick drum workhorse"
	report, err := imp.Import(ctx, text, ImportOptions{GenerateDescriptions: true})
	require.NoError(t, err)
	require.Equal(t, 3, report.Created)
	describer.AssertExpectations(t)

	sm57, _ := store.GetGear(ctx, report.GearIDs[0])
	assert.Equal(t, "A workhorse dynamic microphone.", sm57.Description)

	sm7b, _ := store.GetGear(ctx, report.GearIDs[1])
	assert.True(t, parser.IsPlaceholder(sm7b.Description), "failed generation keeps the placeholder")

	beta, _ := store.GetGear(ctx, report.GearIDs[2])
	assert.Equal(t, "Kick drum workhorse", beta.Description)
}

func TestImport_SkipsDescriptionsWhenDisabled(t *testing.T) {
	store := setupStore(t)
	describer := new(MockDescriber)
	imp := NewImporter(store, describer, nil, testLogger)

	report, err := imp.Import(context.Background(), "Mics:\nShure SM57", ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	describer.AssertNotCalled(t, "Describe", mock.Anything, mock.Anything)
}

func TestImport_FullQueueStillImports(t *testing.T) {
	store := setupStore(t)
	imp := NewImporter(store, nil, &recordingQueue{full: true}, testLogger)

	report, err := imp.Import(context.Background(), "Mics:\nShure SM57", ImportOptions{FetchImages: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Queued)
}

func TestImport_CancelledContext(t *testing.T) {
	store := setupStore(t)
	imp := NewImporter(store, nil, nil, testLogger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := imp.Import(ctx, "Mics:\nShure SM57", ImportOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Created)
}

func TestMergeByLine(t *testing.T) {
	a := []parser.Candidate{{Line: 1}, {Line: 4}}
	b := []parser.Candidate{{Line: 2}, {Line: 3}, {Line: 7}}
	var lines []int
	for _, c := range mergeByLine(a, b) {
		lines = append(lines, c.Line)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 7}, lines)
}
