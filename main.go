// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/danielhkuo/matchvote/cliparse"
	"github.com/danielhkuo/matchvote/directory"
	"github.com/danielhkuo/matchvote/dispatch"
	"github.com/danielhkuo/matchvote/middleware"
	"github.com/danielhkuo/matchvote/models"
	"github.com/danielhkuo/matchvote/report"
	"github.com/danielhkuo/matchvote/state"
	"github.com/danielhkuo/matchvote/voting"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		return 2
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		slog.Warn("Interrupted, finishing votes already sent")
		cancel()
	}()

	runID := voting.NewRunID()

	// Open state store
	store, err := state.Open(ctx, cfg, runID)
	if err != nil {
		slog.Error("state store unavailable", "backend", cfg.StateBackend, "error", err)
		return 1
	}
	defer store.Close()

	client := middleware.NewClient(middleware.Headers{
		Referer:     cfg.Referer,
		Origin:      cfg.Origin,
		BearerToken: cfg.BearerToken,
	}, cfg.RequestTimeout, logger)

	runner := &voting.Runner{
		Directory: &directory.Source{
			Client:    client,
			UsersURL:  cfg.UsersURL,
			CachePath: cfg.UsersCache,
			Refresh:   cfg.RefreshUsers,
			Logger:    logger,
		},
		Store: store,
		Dispatcher: dispatch.New(client, dispatch.Config{
			VoteURL:                cfg.VoteURL,
			OnboardingURL:          cfg.OnboardingURL,
			RequestTimeout:         cfg.RequestTimeout,
			MaxInFlight:            cfg.MaxInFlight,
			SingleFlightOnboarding: cfg.SingleFlightOnboarding,
			Profile: dispatch.Profile{
				Gender:     cfg.Gender,
				Preference: cfg.Preference,
			},
		}, logger),
		Logger: logger,
		RunID:  runID,
	}

	params := voting.Params{
		Pair:   models.VotePair{Person1: cfg.Person1, Person2: cfg.Person2},
		Votes:  cfg.Votes,
		DryRun: cfg.DryRun,
	}

	slog.Info("Starting run", "run_id", runID, "votes", params.Votes, "dry_run", params.DryRun)
	rep, err := runner.Run(ctx, params)
	if rep != nil {
		if rerr := report.Render(os.Stdout, rep, time.Now()); rerr != nil {
			slog.Error("failed to write report", "error", rerr)
		}
	}
	if err != nil {
		slog.Error("Run failed", "run_id", runID, "error", err)
		return report.ExitCode(err)
	}

	return 0
}
