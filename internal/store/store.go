// Package store persists the manufacturer history event log and its derived
// aggregate snapshots. The log is append-only and is the source of truth;
// aggregates are a cache and must stay reconstructible from entries alone.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/labelwatch/compliance-cli/internal/model"
)

// Store is the persistence interface injected into the history tracker.
//
// AppendEntry returns a ConflictError (see internal/errkind) when an entry
// with the same (manufacturer_key, product_id, recorded_at) already exists;
// callers treat that as an idempotent no-op.
type Store interface {
	AppendEntry(ctx context.Context, entry model.HistoryEntry) error
	// ListEntries returns up to limit most-recent entries for a manufacturer
	// in chronological order (oldest first). limit <= 0 returns all.
	ListEntries(ctx context.Context, manufacturerKey string, limit int) ([]model.HistoryEntry, error)
	CountEntries(ctx context.Context, manufacturerKey string) (int, error)

	GetAggregate(ctx context.Context, manufacturerKey string) (*model.ManufacturerProfile, error)
	UpsertAggregate(ctx context.Context, profile model.ManufacturerProfile) error
	// ListAggregates returns every manufacturer profile, most entries first.
	ListAggregates(ctx context.Context) ([]model.ManufacturerProfile, error)

	Migrate(ctx context.Context) error
	Close() error
}

// joinFields flattens a field-name list for a single TEXT column.
func joinFields(fields []model.FieldName) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

func splitFields(s string) []model.FieldName {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	fields := make([]model.FieldName, len(parts))
	for i, p := range parts {
		fields[i] = model.FieldName(p)
	}
	return fields
}

// encodeGaps serializes the per-field gap counters for storage. Empty maps
// store as the empty string so absent and zero look the same on read.
func encodeGaps(gaps map[model.FieldName]int) (string, error) {
	if len(gaps) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(gaps)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeGaps(s string) (map[model.FieldName]int, error) {
	if s == "" {
		return nil, nil
	}
	var gaps map[model.FieldName]int
	if err := json.Unmarshal([]byte(s), &gaps); err != nil {
		return nil, err
	}
	return gaps, nil
}
