package model

import "time"

// Contender is one losing candidate retained on a merged field for audit.
type Contender struct {
	Value      string  `json:"value"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// MergedField is the reconciled value for one field after conflict
// resolution, with the winning source and every contending value.
type MergedField struct {
	FieldName  FieldName   `json:"field_name"`
	Value      string      `json:"value"`
	Source     Source      `json:"source"`
	Confidence float64     `json:"confidence"`
	Contenders []Contender `json:"contenders,omitempty"`
}

// MergedRecord is one compliance-evaluable snapshot of a single product.
// Fields holds exactly one winner per field name; fields with no valid
// candidate are absent from the map, never present with an empty value.
type MergedRecord struct {
	ProductID string                    `json:"product_id"`
	Fields    map[FieldName]MergedField `json:"fields"`
	CreatedAt time.Time                 `json:"created_at"`
}

// Field returns the merged field and whether it is present.
func (r *MergedRecord) Field(name FieldName) (MergedField, bool) {
	f, ok := r.Fields[name]
	return f, ok
}

// Diagnostic records a candidate dropped during merging. Dropped candidates
// never fail the merge; they are surfaced to the caller for audit only.
type Diagnostic struct {
	FieldName FieldName `json:"field_name,omitempty"`
	Source    Source    `json:"source,omitempty"`
	Value     string    `json:"value,omitempty"`
	Reason    string    `json:"reason"`
}
