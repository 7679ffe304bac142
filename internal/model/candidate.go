package model

import "strings"

// FieldName identifies one of the mandatory-disclosure label fields. The set
// is closed: adapters drop anything else before it reaches the merge stage.
type FieldName string

const (
	FieldMRP              FieldName = "mrp"
	FieldNetQuantity      FieldName = "net_quantity"
	FieldManufacturerName FieldName = "manufacturer_name"
	FieldCountryOfOrigin  FieldName = "country_of_origin"
	FieldConsumerCare     FieldName = "consumer_care"
	FieldManufactureDate  FieldName = "manufacture_date"
	FieldBestBefore       FieldName = "best_before"
	FieldBatchNumber      FieldName = "batch_number"
	FieldFSSAILicense     FieldName = "fssai_license"
	FieldBarcode          FieldName = "barcode"
)

// AllFields lists every recognized field name in catalogue order.
var AllFields = []FieldName{
	FieldMRP,
	FieldNetQuantity,
	FieldManufacturerName,
	FieldCountryOfOrigin,
	FieldConsumerCare,
	FieldManufactureDate,
	FieldBestBefore,
	FieldBatchNumber,
	FieldFSSAILicense,
	FieldBarcode,
}

// KnownField reports whether name is part of the closed field catalogue.
func KnownField(name FieldName) bool {
	for _, f := range AllFields {
		if f == name {
			return true
		}
	}
	return false
}

// Source identifies which upstream collaborator proposed a candidate value.
type Source string

const (
	SourceTextRecognition  Source = "text_recognition"
	SourceAIEnhancement    Source = "ai_enhancement"
	SourcePlatformMetadata Source = "platform_metadata"
)

// SourcePriority orders sources from most to least trusted. The merge engine
// walks this list and falls through when a higher-priority value is absent,
// a sentinel, or fails its field validator.
var SourcePriority = []Source{
	SourceTextRecognition,
	SourceAIEnhancement,
	SourcePlatformMetadata,
}

// priorityWeight is the default confidence assumed for a source that did not
// report one. Tracks the SourcePriority order.
var priorityWeight = map[Source]float64{
	SourceTextRecognition:  0.9,
	SourceAIEnhancement:    0.7,
	SourcePlatformMetadata: 0.5,
}

// KnownSource reports whether s is one of the declared sources.
func KnownSource(s Source) bool {
	_, ok := priorityWeight[s]
	return ok
}

// CandidateField is one source's proposed value for one logical field.
type CandidateField struct {
	FieldName  FieldName `json:"field_name"`
	Value      string    `json:"value"`
	Source     Source    `json:"source"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// EffectiveConfidence returns the reported confidence, or the fixed
// per-source priority weight when the source did not report one.
func (c CandidateField) EffectiveConfidence() float64 {
	if c.Confidence != nil {
		return *c.Confidence
	}
	return priorityWeight[c.Source]
}

// notFoundSentinels are values upstream extractors emit when a field could
// not be read off the package. Matched case-insensitively after trimming.
var notFoundSentinels = map[string]bool{
	"not found":            true,
	"not found on package": true,
	"n/a":                  true,
	"na":                   true,
	"null":                 true,
	"none":                 true,
	"-":                    true,
}

// IsSentinel reports whether v is empty or a recognized "not found" marker.
func IsSentinel(v string) bool {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return true
	}
	return notFoundSentinels[strings.ToLower(trimmed)]
}
