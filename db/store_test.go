// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danielhkuo/matchvote/models"
)

// openTestStores returns a SQLite store, plus a PostgreSQL store when
// TEST_DATABASE_URL is set
func openTestStores(t *testing.T) map[string]*Store {
	t.Helper()
	ctx := context.Background()

	stores := make(map[string]*Store)

	path := filepath.Join(t.TempDir(), "state.db")
	sqliteStore, err := Open(ctx, DriverSQLite, path, "run-sqlite")
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })
	stores[DriverSQLite] = sqliteStore

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		pgStore, err := Open(ctx, DriverPostgres, dsn, "run-postgres")
		if err != nil {
			t.Fatalf("Failed to open postgres store: %v", err)
		}
		if _, err := pgStore.db.Exec(`DROP TABLE IF EXISTS used_matcher; DROP TABLE IF EXISTS state_meta`); err != nil {
			t.Fatalf("Failed to clean database: %v", err)
		}
		if err := CreateSchema(ctx, pgStore.db); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { pgStore.Close() })
		stores[DriverPostgres] = pgStore
	}

	return stores
}

func TestStore_LoadEmpty(t *testing.T) {
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			used := store.Load(context.Background())
			if used.Matchers.Len() != 0 {
				t.Errorf("Expected empty set, got %v", used.Matchers.Sorted())
			}
			if !used.UpdatedAt.IsZero() {
				t.Errorf("Expected zero timestamp, got %v", used.UpdatedAt)
			}
		})
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fixed := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
			store.now = func() time.Time { return fixed }

			if err := store.Save(ctx, models.NewMatcherSet("b@x.io", "a@x.io")); err != nil {
				t.Fatal(err)
			}

			used := store.Load(ctx)
			want := []string{"a@x.io", "b@x.io"}
			if !reflect.DeepEqual(used.Matchers.Sorted(), want) {
				t.Errorf("Load() = %v, want %v", used.Matchers.Sorted(), want)
			}
			if !used.UpdatedAt.Equal(fixed) {
				t.Errorf("UpdatedAt = %v, want %v", used.UpdatedAt, fixed)
			}

			runID, err := store.RunID(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if runID != store.runID {
				t.Errorf("RunID = %q, want %q", runID, store.runID)
			}
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
			store.now = func() time.Time { return first }
			if err := store.Save(ctx, models.NewMatcherSet("a@x.io", "b@x.io")); err != nil {
				t.Fatal(err)
			}

			store.now = func() time.Time { return first.Add(time.Hour) }
			if err := store.Save(ctx, models.NewMatcherSet("a@x.io", "c@x.io")); err != nil {
				t.Fatal(err)
			}

			used := store.Load(ctx)
			want := []string{"a@x.io", "c@x.io"}
			if !reflect.DeepEqual(used.Matchers.Sorted(), want) {
				t.Errorf("Load() = %v, want %v", used.Matchers.Sorted(), want)
			}

			// a@x.io keeps its first recorded_at
			var at string
			err := store.db.QueryRow(`SELECT recorded_at FROM used_matcher WHERE email = `+store.ph(1), "a@x.io").Scan(&at)
			if err != nil {
				t.Fatal(err)
			}
			if at != first.Format(time.RFC3339Nano) {
				t.Errorf("recorded_at = %s, want %s", at, first.Format(time.RFC3339Nano))
			}
		})
	}
}

func TestStore_LoadFailureIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := Open(context.Background(), DriverSQLite, path, "run")
	if err != nil {
		t.Fatal(err)
	}
	store.Save(context.Background(), models.NewMatcherSet("a@x.io"))

	// Break the table so the read fails
	if _, err := store.db.Exec(`DROP TABLE used_matcher`); err != nil {
		t.Fatal(err)
	}

	used := store.Load(context.Background())
	if used.Matchers == nil || used.Matchers.Len() != 0 {
		t.Errorf("Expected empty non-nil set, got %v", used.Matchers)
	}
	store.Close()
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
	}{
		{"unknown driver", "mysql", "user@/db"},
		{"empty dsn", DriverSQLite, "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(context.Background(), tt.driver, tt.dsn, ""); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
