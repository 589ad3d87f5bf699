// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package state remembers which matchers have already voted, so later runs
never reuse them.

# Backends

  - file (default): <state-dir>/used_matchers.json
  - sqlite: <state-dir>/state.db, or DATABASE_URL when set
  - postgres: DATABASE_URL

The file format is:

	{
	  "updated_at": "2026-02-14T09:30:00Z",
	  "matchers": ["a@example.com", "b@example.com"]
	}

A bare JSON array of emails is also accepted on load.

# Recording

	merged, err := state.Record(ctx, store, prior, summary.SuccessSet())

Record saves prior ∪ successful exactly once, and not at all when nothing
succeeded. Stored matchers are never dropped.
*/
package state
