package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/labelwatch/compliance-cli/internal/errkind"
	"github.com/labelwatch/compliance-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hot-path history operations.
var preparedStatements = map[string]string{
	"append_entry":     `INSERT INTO history_entries (id, manufacturer_key, product_id, score, catalogue_version, missing_required, recorded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"count_entries":    `SELECT COUNT(*) FROM history_entries WHERE manufacturer_key = $1`,
	"get_aggregate":    `SELECT manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at FROM manufacturer_aggregates WHERE manufacturer_key = $1`,
	"upsert_aggregate": `INSERT INTO manufacturer_aggregates (manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (manufacturer_key) DO UPDATE SET entry_count = EXCLUDED.entry_count, mean_score = EXCLUDED.mean_score, trend = EXCLUDED.trend, level = EXCLUDED.level, field_gaps = EXCLUDED.field_gaps, updated_at = EXCLUDED.updated_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS history_entries (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	manufacturer_key  TEXT NOT NULL,
	product_id        TEXT NOT NULL,
	score             DOUBLE PRECISION NOT NULL,
	catalogue_version TEXT NOT NULL,
	missing_required  TEXT NOT NULL DEFAULT '',
	recorded_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (manufacturer_key, product_id, recorded_at)
);

CREATE TABLE IF NOT EXISTS manufacturer_aggregates (
	manufacturer_key TEXT PRIMARY KEY,
	entry_count      INTEGER NOT NULL,
	mean_score       DOUBLE PRECISION NOT NULL,
	trend            TEXT NOT NULL,
	level            TEXT NOT NULL,
	field_gaps       TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_manufacturer ON history_entries(manufacturer_key, recorded_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

func (s *PostgresStore) AppendEntry(ctx context.Context, entry model.HistoryEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO history_entries (id, manufacturer_key, product_id, score, catalogue_version, missing_required, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, entry.ManufacturerKey, entry.ProductID, entry.Score, entry.CatalogueVersion, joinFields(entry.MissingRequired), entry.RecordedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errkind.NewConflict(eris.Wrapf(err, "postgres: entry %s/%s", entry.ManufacturerKey, entry.ProductID))
		}
		return errkind.NewPersistence(eris.Wrap(err, "postgres: insert entry"))
	}
	return nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, manufacturerKey string, limit int) ([]model.HistoryEntry, error) {
	query := `SELECT id, manufacturer_key, product_id, score, catalogue_version, missing_required, recorded_at
		 FROM history_entries WHERE manufacturer_key = $1 ORDER BY recorded_at DESC, id DESC`
	args := []any{manufacturerKey}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: list entries"))
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var missing string
		if err := rows.Scan(&e.ID, &e.ManufacturerKey, &e.ProductID, &e.Score, &e.CatalogueVersion, &missing, &e.RecordedAt); err != nil {
			return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: scan entry"))
		}
		e.MissingRequired = splitFields(missing)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: list entries iterate"))
	}

	reverse(entries)
	return entries, nil
}

func (s *PostgresStore) CountEntries(ctx context.Context, manufacturerKey string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM history_entries WHERE manufacturer_key = $1`,
		manufacturerKey,
	).Scan(&n)
	if err != nil {
		return 0, errkind.NewPersistence(eris.Wrap(err, "postgres: count entries"))
	}
	return n, nil
}

func (s *PostgresStore) GetAggregate(ctx context.Context, manufacturerKey string) (*model.ManufacturerProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at
		 FROM manufacturer_aggregates WHERE manufacturer_key = $1`,
		manufacturerKey,
	)

	var p model.ManufacturerProfile
	var gaps string
	err := row.Scan(&p.ManufacturerKey, &p.EntryCount, &p.MeanScore, &p.Trend, &p.Level, &gaps, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: get aggregate"))
	}
	if p.FieldGaps, err = decodeGaps(gaps); err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: decode field gaps"))
	}
	return &p, nil
}

func (s *PostgresStore) UpsertAggregate(ctx context.Context, profile model.ManufacturerProfile) error {
	gaps, err := encodeGaps(profile.FieldGaps)
	if err != nil {
		return errkind.NewPersistence(eris.Wrap(err, "postgres: encode field gaps"))
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO manufacturer_aggregates (manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (manufacturer_key) DO UPDATE SET
			entry_count = EXCLUDED.entry_count,
			mean_score  = EXCLUDED.mean_score,
			trend       = EXCLUDED.trend,
			level       = EXCLUDED.level,
			field_gaps  = EXCLUDED.field_gaps,
			updated_at  = EXCLUDED.updated_at`,
		profile.ManufacturerKey, profile.EntryCount, profile.MeanScore, string(profile.Trend), profile.Level, gaps, profile.UpdatedAt.UTC(),
	)
	if err != nil {
		return errkind.NewPersistence(eris.Wrap(err, "postgres: upsert aggregate"))
	}
	return nil
}

func (s *PostgresStore) ListAggregates(ctx context.Context) ([]model.ManufacturerProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT manufacturer_key, entry_count, mean_score, trend, level, field_gaps, updated_at
		 FROM manufacturer_aggregates ORDER BY entry_count DESC, manufacturer_key`,
	)
	if err != nil {
		return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: list aggregates"))
	}
	defer rows.Close()

	var profiles []model.ManufacturerProfile
	for rows.Next() {
		var p model.ManufacturerProfile
		var gaps string
		if err := rows.Scan(&p.ManufacturerKey, &p.EntryCount, &p.MeanScore, &p.Trend, &p.Level, &gaps, &p.UpdatedAt); err != nil {
			return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: scan aggregate"))
		}
		if p.FieldGaps, err = decodeGaps(gaps); err != nil {
			return nil, errkind.NewPersistence(eris.Wrap(err, "postgres: decode field gaps"))
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "postgres: list aggregates iterate")
}
