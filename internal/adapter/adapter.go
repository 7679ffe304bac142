// Package adapter normalizes the payloads produced by the upstream
// collaborators — the text-recognition engine, the AI re-reading pass, and
// the platform listing scraper — into the common candidate-field shape the
// merge engine consumes. The source set is closed: one adapter per source,
// dispatched over the declared list rather than by string lookup.
package adapter

import (
	"sort"

	"go.uber.org/zap"

	"github.com/labelwatch/compliance-cli/internal/model"
)

// Payload is one product's bundle of raw extraction results. Sections for
// sources that did not run are nil.
type Payload struct {
	ProductID        string            `json:"product_id"`
	TextRecognition  *ExtractionResult `json:"text_recognition,omitempty"`
	AIEnhancement    *ExtractionResult `json:"ai_enhancement,omitempty"`
	PlatformMetadata *ExtractionResult `json:"platform_metadata,omitempty"`
}

// ExtractionResult is one source's field map plus optional per-field
// confidence in [0,1]. Field keys use the upstream vocabulary; aliases are
// folded to catalogue names during normalization.
type ExtractionResult struct {
	Fields     map[string]string  `json:"fields"`
	Confidence map[string]float64 `json:"confidence,omitempty"`
}

// SourceAdapter turns one source's section of a payload into candidates.
type SourceAdapter interface {
	Source() model.Source
	Candidates(p *Payload) []model.CandidateField
}

// Adapters returns the adapter list in source-priority order. The merge
// engine does not depend on this order, but keeping it fixed makes the
// emitted candidate order — and therefore merge tie-breaks — reproducible.
func Adapters() []SourceAdapter {
	return []SourceAdapter{
		sectionAdapter{source: model.SourceTextRecognition, section: func(p *Payload) *ExtractionResult { return p.TextRecognition }},
		sectionAdapter{source: model.SourceAIEnhancement, section: func(p *Payload) *ExtractionResult { return p.AIEnhancement }},
		sectionAdapter{source: model.SourcePlatformMetadata, section: func(p *Payload) *ExtractionResult { return p.PlatformMetadata }},
	}
}

// Normalize runs every adapter over the payload and concatenates the
// candidates in adapter order. Unknown field keys are dropped here, before
// the merge stage ever sees them.
func Normalize(p *Payload) []model.CandidateField {
	var candidates []model.CandidateField
	for _, a := range Adapters() {
		candidates = append(candidates, a.Candidates(p)...)
	}
	return candidates
}

// sectionAdapter is the single adapter implementation: every source hands
// over the same field-map shape, differing only in which payload section it
// reads and the source tag it stamps.
type sectionAdapter struct {
	source  model.Source
	section func(p *Payload) *ExtractionResult
}

func (a sectionAdapter) Source() model.Source {
	return a.source
}

func (a sectionAdapter) Candidates(p *Payload) []model.CandidateField {
	result := a.section(p)
	if result == nil {
		return nil
	}

	// Emit in a stable order: canonical field order, and alias keys sorted so
	// two aliases of the same field bucket identically on every run. Bucket
	// order is the merge tie-break, so it cannot depend on map iteration.
	keys := make([]string, 0, len(result.Fields))
	for key := range result.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	byName := make(map[model.FieldName][]model.CandidateField)
	for _, key := range keys {
		value := result.Fields[key]
		name, ok := canonicalField(key)
		if !ok {
			zap.L().Debug("adapter: unknown field dropped",
				zap.String("source", string(a.source)),
				zap.String("key", key),
			)
			continue
		}
		c := model.CandidateField{
			FieldName: name,
			Value:     value,
			Source:    a.source,
		}
		if conf, ok := result.Confidence[key]; ok {
			c.Confidence = &conf
		}
		byName[name] = append(byName[name], c)
	}

	var candidates []model.CandidateField
	for _, name := range model.AllFields {
		candidates = append(candidates, byName[name]...)
	}
	return candidates
}

// fieldAliases folds the upstream field vocabularies (the OCR regex keys,
// the AI service's JSON keys, the listing scraper's detail keys) onto the
// closed catalogue names.
var fieldAliases = map[string]model.FieldName{
	"mrp":               model.FieldMRP,
	"price":             model.FieldMRP,
	"net_quantity":      model.FieldNetQuantity,
	"quantity":          model.FieldNetQuantity,
	"net_weight":        model.FieldNetQuantity,
	"manufacturer_name": model.FieldManufacturerName,
	"manufacturer":      model.FieldManufacturerName,
	"marketed_by":       model.FieldManufacturerName,
	"country_of_origin": model.FieldCountryOfOrigin,
	"origin":            model.FieldCountryOfOrigin,
	"made_in":           model.FieldCountryOfOrigin,
	"consumer_care":     model.FieldConsumerCare,
	"customer_care":     model.FieldConsumerCare,
	"support":           model.FieldConsumerCare,
	"manufacture_date":  model.FieldManufactureDate,
	"mfg_date":          model.FieldManufactureDate,
	"packed_date":       model.FieldManufactureDate,
	"best_before":       model.FieldBestBefore,
	"expiry_date":       model.FieldBestBefore,
	"use_by":            model.FieldBestBefore,
	"batch_number":      model.FieldBatchNumber,
	"batch":             model.FieldBatchNumber,
	"lot_number":        model.FieldBatchNumber,
	"fssai_license":     model.FieldFSSAILicense,
	"license":           model.FieldFSSAILicense,
	"barcode":           model.FieldBarcode,
	"ean":               model.FieldBarcode,
}

func canonicalField(key string) (model.FieldName, bool) {
	name, ok := fieldAliases[normalizeKey(key)]
	return name, ok
}

func normalizeKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c == ' ' || c == '-' || c == '.':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
