// Package pipeline wires the evaluation stages: adapter output is merged,
// the merged record is scored against the rule catalogue, and the result is
// appended to the manufacturer's history. Merge and scoring are pure; only
// the tracking stage touches shared state.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/labelwatch/compliance-cli/internal/adapter"
	"github.com/labelwatch/compliance-cli/internal/errkind"
	"github.com/labelwatch/compliance-cli/internal/history"
	"github.com/labelwatch/compliance-cli/internal/merge"
	"github.com/labelwatch/compliance-cli/internal/model"
	"github.com/labelwatch/compliance-cli/internal/rules"
)

// Summary is the caller-facing compliance digest.
type Summary struct {
	Score            string            `json:"score"`
	Level            string            `json:"level"`
	CatalogueVersion string            `json:"catalogue_version"`
	MissingRequired  []model.FieldName `json:"missing_required"`
	MissingOptional  []model.FieldName `json:"missing_optional"`
}

// Result is the outbound record for one evaluation. Profile is nil when
// tracking was disabled or failed; HistoryRecorded distinguishes the two
// from a successful append.
type Result struct {
	ProductID       string                     `json:"product_id"`
	Manufacturer    string                     `json:"manufacturer"`
	MergedFields    []model.MergedField        `json:"merged_fields"`
	Summary         Summary                    `json:"compliance_summary"`
	Compliance      *model.ComplianceResult    `json:"compliance"`
	Profile         *model.ManufacturerProfile `json:"manufacturer_profile,omitempty"`
	HistoryRecorded bool                       `json:"history_recorded"`
	Diagnostics     []model.Diagnostic         `json:"diagnostics,omitempty"`
}

// Evaluator runs the full merge → rules → tracking sequence. It is safe for
// concurrent use; per-manufacturer serialization lives in the tracker.
type Evaluator struct {
	cat     *rules.Catalogue
	merger  *merge.Engine
	tracker *history.Tracker
}

// New creates an Evaluator. A nil tracker disables history recording;
// evaluations still complete and report HistoryRecorded=false.
func New(cat *rules.Catalogue, tracker *history.Tracker) (*Evaluator, error) {
	if cat == nil {
		return nil, errkind.NewConfig(eris.New("no catalogue"))
	}
	return &Evaluator{
		cat:     cat,
		merger:  merge.New(cat),
		tracker: tracker,
	}, nil
}

// Evaluate processes one upstream payload end to end.
func (e *Evaluator) Evaluate(ctx context.Context, payload *adapter.Payload) (*Result, error) {
	if payload == nil || payload.ProductID == "" {
		return nil, errkind.NewInput(eris.New("payload has no product id"))
	}
	return e.EvaluateCandidates(ctx, payload.ProductID, adapter.Normalize(payload))
}

// EvaluateCandidates processes an already-normalized candidate list.
func (e *Evaluator) EvaluateCandidates(ctx context.Context, productID string, candidates []model.CandidateField) (*Result, error) {
	log := zap.L().With(zap.String("product", productID))

	record, diags := e.merger.Merge(productID, candidates)

	compliance, err := rules.Evaluate(record, e.cat)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ProductID:    productID,
		Manufacturer: manufacturerOf(record),
		MergedFields: orderedFields(record),
		Compliance:   compliance,
		Summary: Summary{
			Score:            compliance.ScoreString(),
			Level:            model.ComplianceLevel(compliance.Score()),
			CatalogueVersion: compliance.CatalogueVersion,
			MissingRequired:  compliance.MissingRequired,
			MissingOptional:  compliance.MissingOptional,
		},
		Diagnostics: diags,
	}

	if e.tracker == nil {
		return result, nil
	}

	profile, err := e.tracker.Record(ctx, result.Manufacturer, compliance, record.CreatedAt)
	switch {
	case err == nil:
		result.Profile = profile
		result.HistoryRecorded = true
	case errkind.IsPersistence(err):
		// Tracking failure never fails the evaluation; the caller gets the
		// score with a history-not-recorded signal.
		log.Warn("pipeline: history not recorded", zap.Error(err))
	default:
		return nil, err
	}

	log.Info("pipeline: evaluation complete",
		zap.String("manufacturer", result.Manufacturer),
		zap.String("score", result.Summary.Score),
		zap.Bool("history_recorded", result.HistoryRecorded),
	)
	return result, nil
}

// manufacturerOf extracts the manufacturer identity from the merged record.
// Products whose label never yielded a manufacturer name are tracked under
// one shared key rather than dropped.
func manufacturerOf(record *model.MergedRecord) string {
	if f, ok := record.Field(model.FieldManufacturerName); ok {
		return f.Value
	}
	return "unknown"
}

// orderedFields flattens the merged field map in catalogue field order so
// output is stable across runs.
func orderedFields(record *model.MergedRecord) []model.MergedField {
	fields := make([]model.MergedField, 0, len(record.Fields))
	for _, name := range model.AllFields {
		if f, ok := record.Field(name); ok {
			fields = append(fields, f)
		}
	}
	return fields
}
