// Package merge resolves multiple candidate values per label field into one
// merged record with provenance. The engine is pure: no I/O, no shared
// state, deterministic for identical input order.
package merge

import (
	"time"

	"go.uber.org/zap"

	"github.com/labelwatch/compliance-cli/internal/model"
	"github.com/labelwatch/compliance-cli/internal/rules"
)

// Engine merges candidate fields using a fixed source-priority order with
// validation fall-through.
type Engine struct {
	cat *rules.Catalogue
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine validating against the given catalogue.
func New(cat *rules.Catalogue, opts ...Option) *Engine {
	e := &Engine{
		cat: cat,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge produces exactly one MergedRecord for a product from its candidate
// list. Malformed candidates are dropped with a diagnostic and never abort
// the merge. Fields with no valid candidate are absent from the record.
func (e *Engine) Merge(productID string, candidates []model.CandidateField) (*model.MergedRecord, []model.Diagnostic) {
	var diags []model.Diagnostic

	// Group by field, preserving adapter emission order within each group.
	// Emission order is the final tie-break, so it must survive grouping.
	byField := make(map[model.FieldName][]model.CandidateField)
	for _, c := range candidates {
		switch {
		case !model.KnownField(c.FieldName):
			diags = append(diags, dropped(c, "unknown field name"))
		case !model.KnownSource(c.Source):
			diags = append(diags, dropped(c, "unknown source"))
		default:
			byField[c.FieldName] = append(byField[c.FieldName], c)
		}
	}

	record := &model.MergedRecord{
		ProductID: productID,
		Fields:    make(map[model.FieldName]model.MergedField, len(byField)),
		CreatedAt: e.now(),
	}

	for _, field := range model.AllFields {
		group, ok := byField[field]
		if !ok {
			continue
		}
		winnerIdx, groupDiags := e.resolve(field, group)
		diags = append(diags, groupDiags...)
		if winnerIdx < 0 {
			continue
		}

		winner := group[winnerIdx]
		merged := model.MergedField{
			FieldName:  field,
			Value:      winner.Value,
			Source:     winner.Source,
			Confidence: winner.EffectiveConfidence(),
		}
		for i, c := range group {
			if i == winnerIdx {
				continue
			}
			merged.Contenders = append(merged.Contenders, model.Contender{
				Value:      c.Value,
				Source:     c.Source,
				Confidence: c.EffectiveConfidence(),
			})
		}
		record.Fields[field] = merged
	}

	if len(diags) > 0 {
		zap.L().Warn("merge: dropped candidates",
			zap.String("product", productID),
			zap.Int("dropped", len(diags)),
			zap.Int("merged_fields", len(record.Fields)),
		)
	}
	return record, diags
}

// resolve walks the fixed source-priority order and returns the index of the
// first source's best valid candidate, or -1 when no source yields one.
// Within one source, higher confidence wins; equal confidence keeps the
// first encountered.
func (e *Engine) resolve(field model.FieldName, group []model.CandidateField) (int, []model.Diagnostic) {
	var diags []model.Diagnostic

	for _, source := range model.SourcePriority {
		best := -1
		for i, c := range group {
			if c.Source != source {
				continue
			}
			if model.IsSentinel(c.Value) {
				diags = append(diags, dropped(c, "empty or not-found sentinel"))
				continue
			}
			if err := e.cat.Validate(field, c.Value); err != nil {
				diags = append(diags, dropped(c, "failed format check: "+err.Error()))
				continue
			}
			if best < 0 || c.EffectiveConfidence() > group[best].EffectiveConfidence() {
				best = i
			}
		}
		if best >= 0 {
			return best, diags
		}
	}
	return -1, diags
}

func dropped(c model.CandidateField, reason string) model.Diagnostic {
	zap.L().Debug("merge: candidate dropped",
		zap.String("field", string(c.FieldName)),
		zap.String("source", string(c.Source)),
		zap.String("reason", reason),
	)
	return model.Diagnostic{
		FieldName: c.FieldName,
		Source:    c.Source,
		Value:     c.Value,
		Reason:    reason,
	}
}
