package model

import "fmt"

// FieldStatus classifies one catalogue field against a merged record.
type FieldStatus string

const (
	// StatusPresent means the field exists and passes its validator.
	StatusPresent FieldStatus = "present"
	// StatusInvalid means the field exists but fails its validator. Scored
	// as non-present, reported distinctly so callers can show "found but
	// malformed" instead of "absent".
	StatusInvalid FieldStatus = "invalid"
	// StatusMissing means the field is absent from the merged record.
	StatusMissing FieldStatus = "missing"
)

// ComplianceResult is the output of evaluating a MergedRecord against one
// catalogue version. Score counts required fields only.
type ComplianceResult struct {
	ProductID        string                    `json:"product_id"`
	CatalogueVersion string                    `json:"catalogue_version"`
	RequiredPresent  int                       `json:"required_present"`
	RequiredTotal    int                       `json:"required_total"`
	MissingRequired  []FieldName               `json:"missing_required"`
	MissingOptional  []FieldName               `json:"missing_optional"`
	PerFieldStatus   map[FieldName]FieldStatus `json:"per_field_status"`
}

// Score returns the compliance fraction in [0,1].
func (r *ComplianceResult) Score() float64 {
	if r.RequiredTotal == 0 {
		return 0
	}
	return float64(r.RequiredPresent) / float64(r.RequiredTotal)
}

// ScoreString renders the score as "X/Y" over the required fields.
func (r *ComplianceResult) ScoreString() string {
	return fmt.Sprintf("%d/%d", r.RequiredPresent, r.RequiredTotal)
}

// ComplianceLevel bands a score the way enforcement reports group
// manufacturers: excellent ≥0.9, good ≥0.75, fair ≥0.5, poor below.
func ComplianceLevel(score float64) string {
	switch {
	case score >= 0.9:
		return "excellent"
	case score >= 0.75:
		return "good"
	case score >= 0.5:
		return "fair"
	default:
		return "poor"
	}
}
