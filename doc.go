// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the matchvote CLI.

matchvote casts votes for one couple on a matchmaking service, once per
matcher account. Matchers are picked from the service's user directory and
remembered, so no account ever votes twice for the same campaign history.

# Running

	matchvote -n 10 --person1 a@example.com --person2 b@example.com --token $TOKEN

Or with environment variables (a .env file is loaded if present):

	VOTE_COUNT=10 PERSON1_EMAIL=a@example.com PERSON2_EMAIL=b@example.com matchvote

CLI flags override environment variables.

# Configuration

Required settings:

  - VOTE_COUNT (-n): votes to cast
  - PERSON1_EMAIL (--person1), PERSON2_EMAIL (--person2): the couple

Optional settings:

  - AUTH_BEARER_TOKEN (--token): bearer token for the service
  - USERS_CACHE (--users-cache): directory cache file (default: users_all.json)
  - REFRESH_USERS (--refresh-users): ignore the cache
  - STATE_BACKEND (--state-backend): file, sqlite or postgres (default: file)
  - STATE_DIR (--state-dir): state directory (default: state)
  - DATABASE_URL (-d): SQL state DSN
  - REQUEST_TIMEOUT (--timeout): per-request timeout (default: 30s)
  - MAX_IN_FLIGHT (--max-in-flight): concurrent matchers, 0 for no bound
  - SINGLE_FLIGHT_ONBOARDING (--single-flight-onboarding)
  - DRY_RUN (--dry-run): print the plan without voting
  - LOG_LEVEL (--log-level): debug, info, warn or error

# Exit codes

  - 0: run completed (individual votes may still have failed)
  - 1: runtime failure (directory fetch, state store)
  - 2: invalid configuration or input

# Architecture

  - cliparse: configuration parsing
  - middleware: HTTP client round trippers and request helpers
  - directory: user directory fetch, cache and decoding
  - selector: matcher selection
  - dispatch: concurrent votes with the onboarding retry
  - results: outcome aggregation
  - state, db: used-matcher persistence
  - voting: run orchestration
  - report: terminal output
  - models: shared types and errors
  - testutil: fake matchmaking service for tests

See package documentation for each component.
*/
package main
