// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package state

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/danielhkuo/matchvote/cliparse"
	"github.com/danielhkuo/matchvote/db"
	"github.com/danielhkuo/matchvote/models"
)

// Store persists the set of matchers that have already voted.
// Load never fails; an unreadable store reads as empty.
type Store interface {
	Load(ctx context.Context) models.UsedMatchers
	Save(ctx context.Context, matchers models.MatcherSet) error
	Close() error
}

// SQLiteFile is the database file name used when no DATABASE_URL is given
const SQLiteFile = "state.db"

// Open returns the store selected by cfg.StateBackend
func Open(ctx context.Context, cfg cliparse.Config, runID string) (Store, error) {
	switch cfg.StateBackend {
	case "", cliparse.BackendFile:
		return NewFileStore(cfg.StateDir), nil

	case cliparse.BackendSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create state dir: %w", err)
			}
			dsn = filepath.Join(cfg.StateDir, SQLiteFile)
		}
		return openSQL(ctx, db.DriverSQLite, dsn, runID)

	case cliparse.BackendPostgres:
		return openSQL(ctx, db.DriverPostgres, cfg.DatabaseURL, runID)

	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// openSQL keeps a failed open from returning a non-nil Store
func openSQL(ctx context.Context, driver, dsn, runID string) (Store, error) {
	store, err := db.Open(ctx, driver, dsn, runID)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Record merges the matchers that just succeeded into prior and saves
// the union once. Nothing is written when no vote succeeded.
func Record(ctx context.Context, store Store, prior, successful models.MatcherSet) (models.MatcherSet, error) {
	if successful.Len() == 0 {
		return prior, nil
	}

	merged := prior.Union(successful)
	if err := store.Save(ctx, merged); err != nil {
		return prior, fmt.Errorf("failed to save used matchers: %w", err)
	}

	slog.Debug("recorded matchers", "added", merged.Len()-prior.Len(), "total", merged.Len())
	return merged, nil
}
