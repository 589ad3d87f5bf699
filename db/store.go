// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/matchvote/models"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store keeps the used-matcher state in SQLite or PostgreSQL
type Store struct {
	db     *sql.DB
	driver string
	runID  string
	now    func() time.Time
}

// Open connects, verifies the connection and creates the schema.
// runID is recorded with every write.
func Open(ctx context.Context, driver, dsn, runID string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := CreateSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &Store{db: conn, driver: driver, runID: runID, now: time.Now}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ph returns the n-th (1-based) bind placeholder for the driver
func (s *Store) ph(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Load returns the stored matchers. Read failures are logged and yield an
// empty set: losing dedup history only risks reusing a matcher.
func (s *Store) Load(ctx context.Context) models.UsedMatchers {
	used, err := s.load(ctx)
	if err != nil {
		slog.Warn("failed to load used matchers, starting empty", "driver", s.driver, "error", err)
		return models.UsedMatchers{Matchers: models.NewMatcherSet()}
	}
	return used
}

func (s *Store) load(ctx context.Context) (models.UsedMatchers, error) {
	used := models.UsedMatchers{Matchers: models.NewMatcherSet()}

	rows, err := s.db.QueryContext(ctx, `SELECT email FROM used_matcher`)
	if err != nil {
		return used, err
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return used, err
		}
		used.Matchers.Add(email)
	}
	if err := rows.Err(); err != nil {
		return used, err
	}

	var updatedAt string
	err = s.db.QueryRowContext(ctx, `SELECT updated_at FROM state_meta WHERE id = 1`).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return used, nil
	}
	if err != nil {
		return used, err
	}

	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		used.UpdatedAt = t
	}
	return used, nil
}

// Save replaces the stored matchers with matchers in one transaction.
// Emails already stored keep their original recorded_at.
func (s *Store) Save(ctx context.Context, matchers models.MatcherSet) error {
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	recorded, err := recordedAt(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to read used matchers: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM used_matcher`); err != nil {
		return fmt.Errorf("failed to clear used matchers: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO used_matcher (email, recorded_at) VALUES (%s, %s)`, s.ph(1), s.ph(2))
	for _, email := range matchers.Sorted() {
		at, ok := recorded[email]
		if !ok {
			at = now
		}
		if _, err := tx.ExecContext(ctx, insert, email, at); err != nil {
			return fmt.Errorf("failed to insert matcher: %w", err)
		}
	}

	meta := fmt.Sprintf(`
		INSERT INTO state_meta (id, updated_at, run_id)
		VALUES (1, %s, %s)
		ON CONFLICT (id) DO UPDATE SET updated_at = excluded.updated_at, run_id = excluded.run_id
	`, s.ph(1), s.ph(2))
	if _, err := tx.ExecContext(ctx, meta, now, s.runID); err != nil {
		return fmt.Errorf("failed to update state metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("used matchers saved", "driver", s.driver, "count", matchers.Len(), "run_id", s.runID)
	return nil
}

func recordedAt(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT email, recorded_at FROM used_matcher`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var email, at string
		if err := rows.Scan(&email, &at); err != nil {
			return nil, err
		}
		out[email] = at
	}
	return out, rows.Err()
}

// RunID returns the run ID recorded by the last write, if any
func (s *Store) RunID(ctx context.Context) (string, error) {
	var runID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT run_id FROM state_meta WHERE id = 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return runID.String, nil
}
