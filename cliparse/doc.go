// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Values are resolved in three layers, later layers winning:

 1. a .env file in the working directory (optional)
 2. environment variables
 3. command-line flags

# CLI Flags

	-n, --votes                  Number of votes to cast
	--person1, --person2         The couple being voted for
	--token                      Bearer token
	--users-url                  Users directory endpoint
	--vote-url                   Vote endpoint
	--onboarding-url             Onboarding quiz endpoint
	--timeout                    Per-request timeout (default: 30s)
	--max-in-flight              Concurrency bound (default: unlimited)
	--single-flight-onboarding   Collapse concurrent onboarding submissions
	--users-cache                Cached users JSON (default: users_all.json)
	--refresh-users              Ignore the cache and fetch users
	--state-dir                  State directory (default: state)
	--state-backend              file, sqlite or postgres (default: file)
	-d, --database-url           Database URL for sqlite or postgres
	--dry-run                    Print the plan without voting
	--log-level                  debug, info, warn or error

# Environment Variables

	VOTE_COUNT        → -n
	PERSON1_EMAIL     → --person1
	PERSON2_EMAIL     → --person2
	AUTH_BEARER_TOKEN → --token
	STATE_BACKEND     → --state-backend
	DATABASE_URL      → -d
	LOG_LEVEL         → --log-level

See the Config struct tags for the full list.

# Validation

ParseFlags returns an error if:

  - either couple email is missing
  - the state backend is unknown
  - the postgres backend is selected without DATABASE_URL
  - the timeout is not positive or the log level is unknown
*/
package cliparse
