// Package history tracks longitudinal compliance per manufacturer. It is the
// sole writer of manufacturer-keyed aggregate state; the merge and rules
// engines stay pure.
package history

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/labelwatch/compliance-cli/internal/errkind"
	"github.com/labelwatch/compliance-cli/internal/model"
	"github.com/labelwatch/compliance-cli/internal/store"
)

const (
	// DefaultWindow is the trend comparison window: the mean of the last N
	// entries against the mean of the N before them.
	DefaultWindow = 5
	// DefaultEpsilon is the minimum mean delta that counts as movement.
	DefaultEpsilon = 0.01
)

// Tracker appends history entries and maintains the derived per-manufacturer
// aggregate. Concurrent appends for the same manufacturer key serialize on a
// per-key mutex so the read-modify-write of the aggregate never loses
// updates.
type Tracker struct {
	store   store.Store
	window  int
	epsilon float64
	now     func() time.Time

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow overrides the trend window size.
func WithWindow(n int) Option {
	return func(t *Tracker) { t.window = n }
}

// WithEpsilon overrides the trend movement threshold.
func WithEpsilon(e float64) Option {
	return func(t *Tracker) { t.epsilon = e }
}

// WithClock overrides the aggregate timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a Tracker over the given store.
func New(st store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:    st,
		window:   DefaultWindow,
		epsilon:  DefaultEpsilon,
		now:      func() time.Time { return time.Now().UTC() },
		keyLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var (
	keyFold = cases.Fold()

	suffixRe     = regexp.MustCompile(`\b(ltd|limited|pvt|private|inc|incorporated|corp|corporation|co|company|llc|llp|gmbh)\.?\s*$`)
	punctRe      = regexp.MustCompile(`[,.\-()&']+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeKey folds a raw manufacturer name into the canonical tracking
// key: case-folded, punctuation and business suffixes stripped, whitespace
// collapsed. "Amul Ltd." and "AMUL  Limited" share one key.
func NormalizeKey(name string) string {
	key := keyFold.String(strings.TrimSpace(name))
	key = punctRe.ReplaceAllString(key, " ")
	key = whitespaceRe.ReplaceAllString(key, " ")
	key = strings.TrimSpace(key)
	for {
		stripped := strings.TrimSpace(suffixRe.ReplaceAllString(key, ""))
		if stripped == key || stripped == "" {
			break
		}
		key = stripped
	}
	if key == "" {
		return "unknown"
	}
	return key
}

// Record appends one compliance event and returns the updated profile.
// Re-submitting the same (product, timestamp) pair is an idempotent no-op:
// the duplicate is not stored and the existing profile is returned.
func (t *Tracker) Record(ctx context.Context, manufacturer string, result *model.ComplianceResult, recordedAt time.Time) (*model.ManufacturerProfile, error) {
	key := NormalizeKey(manufacturer)

	lock := t.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	entry := model.HistoryEntry{
		ManufacturerKey:  key,
		ProductID:        result.ProductID,
		Score:            result.Score(),
		CatalogueVersion: result.CatalogueVersion,
		MissingRequired:  result.MissingRequired,
		RecordedAt:       recordedAt.UTC(),
	}

	if err := t.store.AppendEntry(ctx, entry); err != nil {
		if !errkind.IsConflict(err) {
			return nil, err
		}
		zap.L().Info("history: duplicate entry ignored",
			zap.String("manufacturer", key),
			zap.String("product", entry.ProductID),
			zap.Time("recorded_at", entry.RecordedAt),
		)
	}

	profile, err := t.rebuild(ctx, key)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Profile returns the cached aggregate for a manufacturer, rebuilding it
// from the event log when no snapshot exists yet. Returns nil for a
// manufacturer with no entries.
func (t *Tracker) Profile(ctx context.Context, manufacturer string) (*model.ManufacturerProfile, error) {
	key := NormalizeKey(manufacturer)

	profile, err := t.store.GetAggregate(ctx, key)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	n, err := t.store.CountEntries(ctx, key)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	lock := t.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	return t.rebuild(ctx, key)
}

// rebuild recomputes the aggregate from the full entry sequence and stores
// the snapshot. Caller must hold the key lock.
func (t *Tracker) rebuild(ctx context.Context, key string) (*model.ManufacturerProfile, error) {
	entries, err := t.store.ListEntries(ctx, key, 0)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	var sum float64
	gaps := make(map[model.FieldName]int)
	for _, e := range entries {
		sum += e.Score
		for _, f := range e.MissingRequired {
			gaps[f]++
		}
	}
	mean := sum / float64(len(entries))
	if len(gaps) == 0 {
		gaps = nil
	}

	profile := &model.ManufacturerProfile{
		ManufacturerKey: key,
		EntryCount:      len(entries),
		MeanScore:       mean,
		Trend:           t.trend(entries),
		Level:           model.ComplianceLevel(mean),
		FieldGaps:       gaps,
		UpdatedAt:       t.now(),
	}

	if err := t.store.UpsertAggregate(ctx, *profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// trend compares the mean of the last window entries against the mean of the
// window before it. Entries must be in chronological order.
func (t *Tracker) trend(entries []model.HistoryEntry) model.Trend {
	if len(entries) < 2*t.window {
		return model.TrendInsufficientData
	}

	recent := entries[len(entries)-t.window:]
	previous := entries[len(entries)-2*t.window : len(entries)-t.window]

	delta := windowMean(recent) - windowMean(previous)
	switch {
	case delta > t.epsilon:
		return model.TrendImproving
	case delta < -t.epsilon:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func windowMean(entries []model.HistoryEntry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Score
	}
	return sum / float64(len(entries))
}

func (t *Tracker) keyLock(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		t.keyLocks[key] = lock
	}
	return lock
}
