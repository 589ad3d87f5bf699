// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db keeps the used-matcher state in a SQL database.

# Drivers

Two database/sql drivers are registered:

  - sqlite (modernc.org/sqlite): a local file, no server needed
  - postgres (github.com/lib/pq): shared state across machines

	store, err := db.Open(ctx, db.DriverSQLite, "state/state.db", runID)

Open pings the database and calls CreateSchema, which is safe to call
multiple times - uses IF NOT EXISTS for all tables.

# Tables

  - used_matcher: one row per matcher that has voted (email, recorded_at)
  - state_meta: single row with the last write time and run ID

# Semantics

Save replaces the whole used_matcher table in one transaction, so a
crash mid-save leaves the previous state intact. Load never fails: read
errors are logged and an empty set is returned.
*/
package db
