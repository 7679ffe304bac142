package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/labelwatch/compliance-cli/internal/model"
	"github.com/labelwatch/compliance-cli/internal/store"
)

func newTestTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return New(s, opts...)
}

func result(product string, present, total int) *model.ComplianceResult {
	return &model.ComplianceResult{
		ProductID:        product,
		CatalogueVersion: "LM-2011.1",
		RequiredPresent:  present,
		RequiredTotal:    total,
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Amul Ltd.", "amul"},
		{"AMUL  Limited", "amul"},
		{"amul", "amul"},
		{"Britannia Industries Pvt. Ltd.", "britannia industries"},
		{"Parle Products Private Limited", "parle products"},
		{"Nestlé India", "nestlé india"},
		{"  Tata Consumer Products  ", "tata consumer products"},
		{"(Hindustan) Unilever, Ltd", "hindustan unilever"},
		{"", "unknown"},
		{"Ltd.", "ltd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.name), "name %q", tt.name)
	}
}

func TestRecordBuildsProfile(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	profile, err := tr.Record(ctx, "Amul Ltd.", result("P1", 2, 4), base)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "amul", profile.ManufacturerKey)
	assert.Equal(t, 1, profile.EntryCount)
	assert.Equal(t, 0.5, profile.MeanScore)
	assert.Equal(t, model.TrendInsufficientData, profile.Trend)

	profile, err = tr.Record(ctx, "AMUL Limited", result("P2", 4, 4), base.Add(time.Hour))
	require.NoError(t, err)
	// Same manufacturer under a different spelling of the name.
	assert.Equal(t, 2, profile.EntryCount)
	assert.Equal(t, 0.75, profile.MeanScore)
}

func TestRecordDuplicateIsIdempotent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	first, err := tr.Record(ctx, "Amul", result("P1", 2, 4), at)
	require.NoError(t, err)

	// Same product and timestamp: no new entry, no error, same profile.
	again, err := tr.Record(ctx, "Amul", result("P1", 4, 4), at)
	require.NoError(t, err)
	assert.Equal(t, first.EntryCount, again.EntryCount)
	assert.Equal(t, first.MeanScore, again.MeanScore)
}

func TestTrendImproving(t *testing.T) {
	tr := newTestTracker(t, WithWindow(3))
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	scores := []int{0, 1, 1, 3, 4, 4}
	var profile *model.ManufacturerProfile
	var err error
	for i, present := range scores {
		profile, err = tr.Record(ctx, "Amul", result("P1", present, 4), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	assert.Equal(t, model.TrendImproving, profile.Trend)
	assert.Equal(t, len(scores), profile.EntryCount)
}

func TestTrendDeclining(t *testing.T) {
	tr := newTestTracker(t, WithWindow(3))
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	var profile *model.ManufacturerProfile
	var err error
	for i, present := range []int{4, 4, 3, 1, 1, 0} {
		profile, err = tr.Record(ctx, "Amul", result("P1", present, 4), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	assert.Equal(t, model.TrendDeclining, profile.Trend)
}

func TestTrendStableWithinEpsilon(t *testing.T) {
	tr := newTestTracker(t, WithWindow(3), WithEpsilon(0.01))
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	var profile *model.ManufacturerProfile
	var err error
	for i := 0; i < 6; i++ {
		profile, err = tr.Record(ctx, "Amul", result("P1", 3, 4), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	assert.Equal(t, model.TrendStable, profile.Trend)
}

func TestTrendInsufficientDataBelowTwoWindows(t *testing.T) {
	tr := newTestTracker(t, WithWindow(3))
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	var profile *model.ManufacturerProfile
	var err error
	for i := 0; i < 5; i++ {
		profile, err = tr.Record(ctx, "Amul", result("P1", 4, 4), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	assert.Equal(t, model.TrendInsufficientData, profile.Trend)
}

func TestFieldGapsTally(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	r1 := result("P1", 2, 4)
	r1.MissingRequired = []model.FieldName{model.FieldMRP, model.FieldCountryOfOrigin}
	r2 := result("P2", 3, 4)
	r2.MissingRequired = []model.FieldName{model.FieldMRP}
	r3 := result("P3", 4, 4)

	var profile *model.ManufacturerProfile
	var err error
	for i, r := range []*model.ComplianceResult{r1, r2, r3} {
		profile, err = tr.Record(ctx, "Amul", r, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	assert.Equal(t, map[model.FieldName]int{
		model.FieldMRP:             2,
		model.FieldCountryOfOrigin: 1,
	}, profile.FieldGaps)
}

func TestProfileForUnknownManufacturer(t *testing.T) {
	tr := newTestTracker(t)

	profile, err := tr.Profile(context.Background(), "Nobody Foods")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestProfileRebuildsFromEntries(t *testing.T) {
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	// Entries exist but no aggregate snapshot: Profile must rebuild from the
	// log, not report absent.
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendEntry(ctx, model.HistoryEntry{
			ManufacturerKey:  "amul",
			ProductID:        "P1",
			Score:            0.5,
			CatalogueVersion: "LM-2011.1",
			RecordedAt:       base.Add(time.Duration(i) * time.Hour),
		}))
	}

	tr := New(s)
	profile, err := tr.Profile(ctx, "Amul Ltd.")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 3, profile.EntryCount)
	assert.Equal(t, 0.5, profile.MeanScore)

	// The rebuild left a snapshot behind.
	cached, err := s.GetAggregate(ctx, "amul")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 3, cached.EntryCount)
}

func TestConcurrentRecordsSameManufacturer(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	const n = 20
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, err := tr.Record(gctx, "Amul", result("P1", 2, 4), base.Add(time.Duration(i)*time.Minute))
			return err
		})
	}
	require.NoError(t, g.Wait())

	profile, err := tr.Profile(ctx, "Amul")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, n, profile.EntryCount)
	assert.InDelta(t, 0.5, profile.MeanScore, 1e-9)
}
