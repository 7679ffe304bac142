package model

import "time"

// Trend classifies a manufacturer's recent compliance direction over the
// fixed comparison window.
type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

// HistoryEntry is one longitudinal compliance event for a manufacturer.
// Entries are append-only; they are never mutated or deleted after write.
type HistoryEntry struct {
	ID               string      `json:"id"`
	ManufacturerKey  string      `json:"manufacturer_key"`
	ProductID        string      `json:"product_id"`
	Score            float64     `json:"score"`
	CatalogueVersion string      `json:"catalogue_version"`
	MissingRequired  []FieldName `json:"missing_required,omitempty"`
	RecordedAt       time.Time   `json:"recorded_at"`
}

// ManufacturerProfile is the derived aggregate over a manufacturer's entry
// sequence. It is a cache of the event log, never the source of truth.
// FieldGaps counts, per required field, how many entries were missing it.
type ManufacturerProfile struct {
	ManufacturerKey string            `json:"manufacturer_key"`
	EntryCount      int               `json:"entry_count"`
	MeanScore       float64           `json:"mean_score"`
	Trend           Trend             `json:"trend"`
	Level           string            `json:"level"`
	FieldGaps       map[FieldName]int `json:"field_gaps,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
