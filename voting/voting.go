// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/danielhkuo/matchvote/directory"
	"github.com/danielhkuo/matchvote/models"
	"github.com/danielhkuo/matchvote/results"
	"github.com/danielhkuo/matchvote/selector"
	"github.com/danielhkuo/matchvote/state"
)

// Directory supplies the user directory snapshot
type Directory interface {
	Load(ctx context.Context) (directory.Snapshot, error)
}

// Dispatcher casts one vote per matcher
type Dispatcher interface {
	Dispatch(ctx context.Context, pair models.VotePair, matchers []string) []models.VoteOutcome
}

// Params describes one run
type Params struct {
	Pair   models.VotePair
	Votes  int
	DryRun bool
}

// Plan is everything decided before the first vote is sent
type Plan struct {
	RunID    string
	Pair     models.VotePair
	Votes    int
	Snapshot directory.Snapshot
	Used     models.UsedMatchers
	// Available counts matchers eligible before truncating to Votes
	Available int
	Matchers  []string
}

// Report is the result of a run
type Report struct {
	Plan    *Plan
	DryRun  bool
	Summary results.Summary
	// Recorded is the used-matcher set after the run
	Recorded models.MatcherSet
	// Interrupted is set when the caller cancelled before every vote was sent
	Interrupted bool
}

// Runner wires the directory, state store and dispatcher together
type Runner struct {
	Directory  Directory
	Store      state.Store
	Dispatcher Dispatcher
	Logger     *slog.Logger
	// RunID is generated when empty
	RunID string
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// Plan validates p, loads the directory and state, and selects matchers.
// No vote is sent. Validation failures are *models.ValidationError.
func (r *Runner) Plan(ctx context.Context, p Params) (*Plan, error) {
	if p.Votes <= 0 {
		return nil, &models.ValidationError{
			Reason: models.ErrInvalidVoteCount,
			Detail: fmt.Sprintf("got %d", p.Votes),
		}
	}
	if err := p.Pair.Validate(); err != nil {
		return nil, err
	}

	snap, err := r.Directory.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	used := r.Store.Load(ctx)

	matchers, err := selector.Select(snap, p.Pair, used.Matchers, p.Votes)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		RunID:     r.runID(),
		Pair:      p.Pair,
		Votes:     p.Votes,
		Snapshot:  snap,
		Used:      used,
		Available: len(selector.Candidates(snap, p.Pair, used.Matchers)),
		Matchers:  matchers,
	}

	r.logger().Info("matchers selected",
		"run_id", plan.RunID,
		"votes", plan.Votes,
		"users", snap.Size,
		"used", used.Matchers.Len(),
		"available", plan.Available,
	)
	return plan, nil
}

// Run plans, dispatches, aggregates and records.
//
// Cancelling ctx stops unsent votes only. The outcomes of votes already
// sent are still aggregated and recorded.
func (r *Runner) Run(ctx context.Context, p Params) (*Report, error) {
	plan, err := r.Plan(ctx, p)
	if err != nil {
		return nil, err
	}

	report := &Report{Plan: plan, DryRun: p.DryRun, Recorded: plan.Used.Matchers}
	if p.DryRun {
		r.logger().Info("dry run, no votes sent", "run_id", plan.RunID)
		return report, nil
	}

	outcomes := r.Dispatcher.Dispatch(ctx, plan.Pair, plan.Matchers)
	report.Summary = results.Aggregate(outcomes)
	report.Interrupted = report.Summary.CountByKind()[models.ErrNotSent] > 0

	r.logger().Info("votes dispatched",
		"run_id", plan.RunID,
		"succeeded", report.Summary.Succeeded,
		"failed", report.Summary.Failed,
		"retried", report.Summary.Retried(),
	)

	// Persist even when interrupted
	recorded, err := state.Record(context.WithoutCancel(ctx), r.Store, plan.Used.Matchers, report.Summary.SuccessSet())
	if err != nil {
		return report, err
	}
	report.Recorded = recorded
	return report, nil
}

func (r *Runner) runID() string {
	if r.RunID == "" {
		r.RunID = NewRunID()
	}
	return r.RunID
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
