package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/labelwatch/compliance-cli/internal/history"
	"github.com/labelwatch/compliance-cli/internal/pipeline"
	"github.com/labelwatch/compliance-cli/internal/rules"
	"github.com/labelwatch/compliance-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "labelwatch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initCatalogue loads the configured catalogue file, or the built-in default
// when none is configured. Catalogue problems abort before any evaluation.
func initCatalogue() (*rules.Catalogue, error) {
	if cfg.Catalogue.Path == "" {
		return rules.Default(), nil
	}
	return rules.Load(cfg.Catalogue.Path)
}

func initTracker(st store.Store) *history.Tracker {
	var opts []history.Option
	if cfg.Tracker.Window > 0 {
		opts = append(opts, history.WithWindow(cfg.Tracker.Window))
	}
	if cfg.Tracker.Epsilon > 0 {
		opts = append(opts, history.WithEpsilon(cfg.Tracker.Epsilon))
	}
	return history.New(st, opts...)
}

// initEvaluator wires the full evaluation stack: store, tracker, catalogue.
func initEvaluator(ctx context.Context) (*pipeline.Evaluator, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	cat, err := initCatalogue()
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	ev, err := pipeline.New(cat, initTracker(st))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return ev, st, nil
}
