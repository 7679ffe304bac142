package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/labelwatch/compliance-cli/internal/errkind"
	"github.com/labelwatch/compliance-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS history_entries (
	id                TEXT PRIMARY KEY,
	manufacturer_key  TEXT NOT NULL,
	product_id        TEXT NOT NULL,
	score             REAL NOT NULL,
	catalogue_version TEXT NOT NULL,
	missing_required  TEXT NOT NULL DEFAULT '',
	recorded_at       DATETIME NOT NULL,
	UNIQUE (manufacturer_key, product_id, recorded_at)
);

CREATE TABLE IF NOT EXISTS manufacturer_aggregates (
	manufacturer_key TEXT PRIMARY KEY,
	entry_count      INTEGER NOT NULL,
	mean_score       REAL NOT NULL,
	trend            TEXT NOT NULL,
	level            TEXT NOT NULL,
	field_gaps       TEXT NOT NULL DEFAULT '',
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_manufacturer ON history_entries(manufacturer_key, recorded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendEntry(ctx context.Context, entry model.HistoryEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history_entries (id, manufacturer_key, product_id, score, catalogue_version, missing_required, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, entry.ManufacturerKey, entry.ProductID, entry.Score, entry.CatalogueVersion, joinFields(entry.MissingRequired), entry.RecordedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errkind.NewConflict(eris.Wrapf(err, "sqlite: entry %s/%s", entry.ManufacturerKey, entry.ProductID))
		}
		return errkind.NewPersistence(eris.Wrap(err, "sqlite: insert entry"))
	}
	return nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, manufacturerKey string, limit int) ([]model.HistoryEntry, error) {
	query := `SELECT id, manufacturer_key, product_id, score, catalogue_version, missing_required, recorded_at
		 FROM history_entries WHERE manufacturer_key = ? ORDER BY recorded_at DESC, id DESC`
	args := []any{manufacturerKey}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: list entries"))
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var missing string
		if err := rows.Scan(&e.ID, &e.ManufacturerKey, &e.ProductID, &e.Score, &e.CatalogueVersion, &missing, &e.RecordedAt); err != nil {
			return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: scan entry"))
		}
		e.MissingRequired = splitFields(missing)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: list entries iterate"))
	}

	// Query returns newest first so LIMIT keeps the most recent window;
	// callers want chronological order.
	reverse(entries)
	return entries, nil
}

func (s *SQLiteStore) CountEntries(ctx context.Context, manufacturerKey string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history_entries WHERE manufacturer_key = ?`,
		manufacturerKey,
	).Scan(&n)
	if err != nil {
		return 0, errkind.NewPersistence(eris.Wrap(err, "sqlite: count entries"))
	}
	return n, nil
}

func (s *SQLiteStore) GetAggregate(ctx context.Context, manufacturerKey string) (*model.ManufacturerProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at
		 FROM manufacturer_aggregates WHERE manufacturer_key = ?`,
		manufacturerKey,
	)

	var p model.ManufacturerProfile
	var gaps string
	err := row.Scan(&p.ManufacturerKey, &p.EntryCount, &p.MeanScore, &p.Trend, &p.Level, &gaps, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: get aggregate"))
	}
	if p.FieldGaps, err = decodeGaps(gaps); err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: decode field gaps"))
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertAggregate(ctx context.Context, profile model.ManufacturerProfile) error {
	gaps, err := encodeGaps(profile.FieldGaps)
	if err != nil {
		return errkind.NewPersistence(eris.Wrap(err, "sqlite: encode field gaps"))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO manufacturer_aggregates (manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (manufacturer_key) DO UPDATE SET
			entry_count = excluded.entry_count,
			mean_score  = excluded.mean_score,
			trend       = excluded.trend,
			level       = excluded.level,
			field_gaps  = excluded.field_gaps,
			updated_at  = excluded.updated_at`,
		profile.ManufacturerKey, profile.EntryCount, profile.MeanScore, string(profile.Trend), profile.Level, gaps, profile.UpdatedAt.UTC(),
	)
	if err != nil {
		return errkind.NewPersistence(eris.Wrap(err, "sqlite: upsert aggregate"))
	}
	return nil
}

func (s *SQLiteStore) ListAggregates(ctx context.Context) ([]model.ManufacturerProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at
		 FROM manufacturer_aggregates ORDER BY entry_count DESC, manufacturer_key`,
	)
	if err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: list aggregates"))
	}
	defer rows.Close()

	var profiles []model.ManufacturerProfile
	for rows.Next() {
		var p model.ManufacturerProfile
		var gaps string
		if err := rows.Scan(&p.ManufacturerKey, &p.EntryCount, &p.MeanScore, &p.Trend, &p.Level, &gaps, &p.UpdatedAt); err != nil {
			return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: scan aggregate"))
		}
		if p.FieldGaps, err = decodeGaps(gaps); err != nil {
			return nil, errkind.NewPersistence(eris.Wrap(err, "sqlite: decode field gaps"))
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "sqlite: list aggregates iterate")
}

func reverse(entries []model.HistoryEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
