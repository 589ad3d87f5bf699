// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Storage backends for the used-matcher state
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	// Run
	Votes   int    `env:"VOTE_COUNT"`
	Person1 string `env:"PERSON1_EMAIL"`
	Person2 string `env:"PERSON2_EMAIL"`
	DryRun  bool   `env:"DRY_RUN"`

	// Remote service
	UsersURL       string        `env:"USERS_URL" envDefault:"https://www.jjose.tech/users/all"`
	VoteURL        string        `env:"VOTE_URL" envDefault:"https://www.jjose.tech/match/make"`
	OnboardingURL  string        `env:"ONBOARDING_URL" envDefault:"https://www.jjose.tech/users/submit-answers"`
	Referer        string        `env:"REFERER" envDefault:"https://cupids-ledger.vercel.app/"`
	Origin         string        `env:"ORIGIN" envDefault:"https://cupids-ledger.vercel.app"`
	BearerToken    string        `env:"AUTH_BEARER_TOKEN"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Dispatch
	MaxInFlight            int    `env:"MAX_IN_FLIGHT" envDefault:"0"`
	SingleFlightOnboarding bool   `env:"SINGLE_FLIGHT_ONBOARDING"`
	Gender                 string `env:"ONBOARDING_GENDER" envDefault:"male"`
	Preference             string `env:"ONBOARDING_PREFERENCE" envDefault:"women"`

	// Local files and state
	UsersCache   string `env:"USERS_CACHE" envDefault:"users_all.json"`
	RefreshUsers bool   `env:"REFRESH_USERS"`
	StateDir     string `env:"STATE_DIR" envDefault:"state"`
	StateBackend string `env:"STATE_BACKEND" envDefault:"file"`
	DatabaseURL  string `env:"DATABASE_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// ParseFlags loads .env, reads the environment, then applies flags.
// CLI flags take precedence over environment variables.
func ParseFlags(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	flagSet := pflag.NewFlagSet("matchvote", pflag.ContinueOnError)

	flagSet.IntVarP(&cfg.Votes, "votes", "n", cfg.Votes, "Number of votes to cast")
	flagSet.StringVar(&cfg.Person1, "person1", cfg.Person1, "Email of the first person in the couple")
	flagSet.StringVar(&cfg.Person2, "person2", cfg.Person2, "Email of the second person in the couple")
	flagSet.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Select matchers and print the plan without voting")

	flagSet.StringVar(&cfg.UsersURL, "users-url", cfg.UsersURL, "Users directory endpoint")
	flagSet.StringVar(&cfg.VoteURL, "vote-url", cfg.VoteURL, "Vote endpoint")
	flagSet.StringVar(&cfg.OnboardingURL, "onboarding-url", cfg.OnboardingURL, "Onboarding quiz endpoint")
	flagSet.StringVar(&cfg.Referer, "referer", cfg.Referer, "Referer header")
	flagSet.StringVar(&cfg.Origin, "origin", cfg.Origin, "Origin header")
	flagSet.StringVar(&cfg.BearerToken, "token", cfg.BearerToken, "Bearer token (prefer env)")
	flagSet.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Per-request timeout")

	flagSet.IntVar(&cfg.MaxInFlight, "max-in-flight", cfg.MaxInFlight, "Maximum concurrent matchers (0 = unlimited)")
	flagSet.BoolVar(&cfg.SingleFlightOnboarding, "single-flight-onboarding", cfg.SingleFlightOnboarding, "Collapse concurrent onboarding submissions for the couple")
	flagSet.StringVar(&cfg.Gender, "gender", cfg.Gender, "Gender sent with onboarding")
	flagSet.StringVar(&cfg.Preference, "preference", cfg.Preference, "Preference sent with onboarding")

	flagSet.StringVar(&cfg.UsersCache, "users-cache", cfg.UsersCache, "Path of the cached users JSON")
	flagSet.BoolVar(&cfg.RefreshUsers, "refresh-users", cfg.RefreshUsers, "Fetch users even when the cache exists")
	flagSet.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Directory for state files")
	flagSet.StringVar(&cfg.StateBackend, "state-backend", cfg.StateBackend, "State backend (file, sqlite or postgres)")
	flagSet.StringVarP(&cfg.DatabaseURL, "database-url", "d", cfg.DatabaseURL, "Database URL for the sqlite or postgres backend")

	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}

	if flagSet.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg.Person1 = strings.TrimSpace(cfg.Person1)
	cfg.Person2 = strings.TrimSpace(cfg.Person2)
	cfg.StateBackend = strings.ToLower(strings.TrimSpace(cfg.StateBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks required values. Vote count and couple emails are
// validated again by the selector, which classifies them.
func (c Config) Validate() error {
	if c.Person1 == "" {
		return errors.New("person1 email required (use --person1 or PERSON1_EMAIL env)")
	}
	if c.Person2 == "" {
		return errors.New("person2 email required (use --person2 or PERSON2_EMAIL env)")
	}
	if c.UsersURL == "" || c.VoteURL == "" || c.OnboardingURL == "" {
		return errors.New("users, vote and onboarding URLs are required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxInFlight < 0 {
		return errors.New("max-in-flight cannot be negative")
	}

	switch c.StateBackend {
	case BackendFile, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL required for postgres backend (use -d or DATABASE_URL env)")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.StateBackend)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level returns the slog level named by LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
