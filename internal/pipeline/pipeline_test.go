package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelwatch/compliance-cli/internal/adapter"
	"github.com/labelwatch/compliance-cli/internal/errkind"
	"github.com/labelwatch/compliance-cli/internal/history"
	"github.com/labelwatch/compliance-cli/internal/model"
	"github.com/labelwatch/compliance-cli/internal/rules"
	"github.com/labelwatch/compliance-cli/internal/store"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	ev, err := New(rules.Default(), history.New(s))
	require.NoError(t, err)
	return ev
}

func compliantPayload(product string) *adapter.Payload {
	return &adapter.Payload{
		ProductID: product,
		TextRecognition: &adapter.ExtractionResult{
			Fields: map[string]string{
				"mrp":               "₹ 45.00",
				"net_quantity":      "500 g",
				"manufacturer_name": "Amul Ltd.",
				"country_of_origin": "Not Found",
			},
		},
		AIEnhancement: &adapter.ExtractionResult{
			Fields: map[string]string{
				"country_of_origin": "India",
				"batch_number":      "B42",
			},
		},
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	ev := newTestEvaluator(t)

	result, err := ev.Evaluate(context.Background(), compliantPayload("P1"))
	require.NoError(t, err)

	assert.Equal(t, "P1", result.ProductID)
	assert.Equal(t, "Amul Ltd.", result.Manufacturer)
	assert.Equal(t, "4/4", result.Summary.Score)
	assert.Equal(t, "excellent", result.Summary.Level)
	assert.Equal(t, rules.DefaultVersion, result.Summary.CatalogueVersion)
	assert.Empty(t, result.Summary.MissingRequired)

	// The OCR sentinel for country of origin fell through to the AI value.
	var origin *model.MergedField
	for i := range result.MergedFields {
		if result.MergedFields[i].FieldName == model.FieldCountryOfOrigin {
			origin = &result.MergedFields[i]
		}
	}
	require.NotNil(t, origin)
	assert.Equal(t, model.SourceAIEnhancement, origin.Source)
	assert.Equal(t, "India", origin.Value)
	assert.NotEmpty(t, result.Diagnostics)

	require.True(t, result.HistoryRecorded)
	require.NotNil(t, result.Profile)
	assert.Equal(t, "amul", result.Profile.ManufacturerKey)
	assert.Equal(t, 1, result.Profile.EntryCount)
	assert.Equal(t, 1.0, result.Profile.MeanScore)
}

func TestEvaluateRejectsMissingProductID(t *testing.T) {
	ev := newTestEvaluator(t)

	_, err := ev.Evaluate(context.Background(), &adapter.Payload{})
	require.Error(t, err)
	assert.True(t, errkind.IsInput(err))

	_, err = ev.Evaluate(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errkind.IsInput(err))
}

func TestEvaluateNoCandidatesStillScores(t *testing.T) {
	ev := newTestEvaluator(t)

	result, err := ev.Evaluate(context.Background(), &adapter.Payload{ProductID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, "0/4", result.Summary.Score)
	assert.Equal(t, "poor", result.Summary.Level)
	assert.Equal(t, "unknown", result.Manufacturer)
	assert.True(t, result.HistoryRecorded)
}

func TestNewRequiresCatalogue(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
	assert.True(t, errkind.IsConfig(err))
}

func TestEvaluateWithoutTracker(t *testing.T) {
	ev, err := New(rules.Default(), nil)
	require.NoError(t, err)

	result, err := ev.Evaluate(context.Background(), compliantPayload("P1"))
	require.NoError(t, err)
	assert.False(t, result.HistoryRecorded)
	assert.Nil(t, result.Profile)
	assert.Equal(t, "4/4", result.Summary.Score)
}

// brokenStore fails every operation with a PersistenceError.
type brokenStore struct{}

func (brokenStore) AppendEntry(context.Context, model.HistoryEntry) error {
	return errkind.NewPersistence(eris.New("disk on fire"))
}

func (brokenStore) ListEntries(context.Context, string, int) ([]model.HistoryEntry, error) {
	return nil, errkind.NewPersistence(eris.New("disk on fire"))
}

func (brokenStore) CountEntries(context.Context, string) (int, error) {
	return 0, errkind.NewPersistence(eris.New("disk on fire"))
}

func (brokenStore) GetAggregate(context.Context, string) (*model.ManufacturerProfile, error) {
	return nil, errkind.NewPersistence(eris.New("disk on fire"))
}

func (brokenStore) UpsertAggregate(context.Context, model.ManufacturerProfile) error {
	return errkind.NewPersistence(eris.New("disk on fire"))
}

func (brokenStore) ListAggregates(context.Context) ([]model.ManufacturerProfile, error) {
	return nil, errkind.NewPersistence(eris.New("disk on fire"))
}

func (brokenStore) Migrate(context.Context) error { return nil }
func (brokenStore) Close() error                  { return nil }

func TestEvaluateDegradesOnPersistenceFailure(t *testing.T) {
	ev, err := New(rules.Default(), history.New(brokenStore{}))
	require.NoError(t, err)

	// The score still comes back; only history recording is lost.
	result, err := ev.Evaluate(context.Background(), compliantPayload("P1"))
	require.NoError(t, err)
	assert.Equal(t, "4/4", result.Summary.Score)
	assert.False(t, result.HistoryRecorded)
	assert.Nil(t, result.Profile)
}

func TestEvaluateDeterministicAcrossRuns(t *testing.T) {
	ev := newTestEvaluator(t)
	ctx := context.Background()

	first, err := ev.Evaluate(ctx, compliantPayload("P1"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := ev.Evaluate(ctx, compliantPayload("P1"))
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.MergedFields, second.MergedFields)
	// Two distinct evaluations of the same product are two history events.
	assert.Equal(t, 2, second.Profile.EntryCount)
}
