// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/danielhkuo/matchvote/cliparse"
	"github.com/danielhkuo/matchvote/db"
	"github.com/danielhkuo/matchvote/directory"
	"github.com/danielhkuo/matchvote/dispatch"
	"github.com/danielhkuo/matchvote/models"
	"github.com/danielhkuo/matchvote/state"
	"github.com/danielhkuo/matchvote/testutil"
)

var pair = models.VotePair{Person1: "p1@x.io", Person2: "p2@x.io"}

func newRunner(t *testing.T, svc *testutil.FakeService, store state.Store) *Runner {
	t.Helper()
	client := testutil.NewClient()

	return &Runner{
		Directory: &directory.Source{
			Client:   client,
			UsersURL: svc.UsersURL(),
			Logger:   testutil.DiscardLogger(),
		},
		Store: store,
		Dispatcher: dispatch.New(client, dispatch.Config{
			VoteURL:       svc.VoteURL(),
			OnboardingURL: svc.OnboardingURL(),
		}, testutil.DiscardLogger()),
		Logger: testutil.DiscardLogger(),
	}
}

func TestRun_OnboardsAndRecords(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.UsersPayload = testutil.UsersPayload("p1@x.io", "m1@x.io", "p2@x.io", "m2@x.io", "m3@x.io", "m4@x.io")
	svc.RequireOnboarding = true
	store := state.NewFileStore(t.TempDir())

	report, err := newRunner(t, svc, store).Run(context.Background(), Params{Pair: pair, Votes: 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"m1@x.io", "m2@x.io", "m3@x.io"}
	if !reflect.DeepEqual(report.Plan.Matchers, want) {
		t.Errorf("Matchers = %v, want %v", report.Plan.Matchers, want)
	}
	if report.Summary.Succeeded != 3 || report.Summary.Failed != 0 {
		t.Errorf("Succeeded = %d, Failed = %d", report.Summary.Succeeded, report.Summary.Failed)
	}
	// Votes arriving after the first onboarding go straight through
	retried := report.Summary.Retried()
	if retried < 1 {
		t.Errorf("Retried = %d, want at least 1", retried)
	}
	if got := svc.TotalVotes(); got != 3+retried {
		t.Errorf("TotalVotes = %d, want %d", got, 3+retried)
	}
	if svc.OnboardingCount("p1@x.io") == 0 || svc.OnboardingCount("p2@x.io") == 0 {
		t.Error("Expected both members to be onboarded")
	}

	stored := store.Load(context.Background()).Matchers.Sorted()
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("stored = %v, want %v", stored, want)
	}
	if !reflect.DeepEqual(report.Recorded.Sorted(), want) {
		t.Errorf("Recorded = %v, want %v", report.Recorded.Sorted(), want)
	}
	if report.Plan.RunID == "" {
		t.Error("Expected a run ID")
	}
}

func TestRun_NeverReusesMatchers(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.UsersPayload = testutil.UsersPayload("p1@x.io", "p2@x.io", "m1@x.io", "m2@x.io", "m3@x.io", "m4@x.io")
	store := state.NewFileStore(t.TempDir())
	ctx := context.Background()

	for i, want := range [][]string{{"m1@x.io", "m2@x.io"}, {"m3@x.io", "m4@x.io"}} {
		report, err := newRunner(t, svc, store).Run(ctx, Params{Pair: pair, Votes: 2})
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if !reflect.DeepEqual(report.Plan.Matchers, want) {
			t.Errorf("run %d Matchers = %v, want %v", i, report.Plan.Matchers, want)
		}
	}

	_, err := newRunner(t, svc, store).Run(ctx, Params{Pair: pair, Votes: 1})
	if !errors.Is(err, models.ErrInsufficientAvailableMatchers) {
		t.Fatalf("Expected ErrInsufficientAvailableMatchers, got %v", err)
	}

	for _, m := range []string{"m1@x.io", "m2@x.io", "m3@x.io", "m4@x.io"} {
		if got := svc.VoteCount(m); got != 1 {
			t.Errorf("VoteCount(%s) = %d, want 1", m, got)
		}
	}
}

func TestRun_PartialFailure(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.UsersPayload = testutil.UsersPayload("p1@x.io", "p2@x.io", "m1@x.io", "m2@x.io", "m3@x.io")
	svc.VoteStatus["m2@x.io"] = http.StatusInternalServerError
	store := state.NewFileStore(t.TempDir())
	ctx := context.Background()

	if err := store.Save(ctx, models.NewMatcherSet("old@x.io")); err != nil {
		t.Fatal(err)
	}

	report, err := newRunner(t, svc, store).Run(ctx, Params{Pair: pair, Votes: 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Summary.Succeeded != 2 || report.Summary.Failed != 1 {
		t.Errorf("Succeeded = %d, Failed = %d", report.Summary.Succeeded, report.Summary.Failed)
	}
	failures := report.Summary.Failures()
	if len(failures) != 1 || !errors.Is(failures[0].Err, models.ErrRemoteRejection) {
		t.Errorf("Failures = %+v", failures)
	}

	stored := store.Load(ctx).Matchers.Sorted()
	want := []string{"m1@x.io", "m3@x.io", "old@x.io"}
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("stored = %v, want %v", stored, want)
	}
}

func TestRun_ValidationSendsNothing(t *testing.T) {
	tests := []struct {
		name   string
		users  []string
		params Params
		want   error
	}{
		{
			name:   "zero votes",
			users:  []string{"p1@x.io", "p2@x.io", "m1@x.io"},
			params: Params{Pair: pair, Votes: 0},
			want:   models.ErrInvalidVoteCount,
		},
		{
			name:   "missing person",
			users:  []string{"p1@x.io", "p2@x.io", "m1@x.io"},
			params: Params{Pair: models.VotePair{Person1: "p1@x.io"}, Votes: 1},
			want:   models.ErrInvalidPair,
		},
		{
			name:   "directory too small",
			users:  []string{"p1@x.io", "p2@x.io", "m1@x.io"},
			params: Params{Pair: pair, Votes: 2},
			want:   models.ErrInsufficientUsers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService(t)
			svc.UsersPayload = testutil.UsersPayload(tt.users...)
			store := state.NewFileStore(t.TempDir())

			report, err := newRunner(t, svc, store).Run(context.Background(), tt.params)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("Expected a validation error, got %T", err)
			}
			if report != nil {
				t.Errorf("Expected nil report, got %+v", report)
			}
			if svc.TotalVotes() != 0 {
				t.Errorf("Expected no votes, got %d", svc.TotalVotes())
			}
		})
	}
}

func TestRun_DryRun(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.UsersPayload = testutil.UsersPayload("p1@x.io", "p2@x.io", "m1@x.io", "m2@x.io")
	store := state.NewFileStore(t.TempDir())

	report, err := newRunner(t, svc, store).Run(context.Background(), Params{Pair: pair, Votes: 2, DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !report.DryRun || len(report.Plan.Matchers) != 2 {
		t.Errorf("report = %+v", report)
	}
	if report.Plan.Available != 2 {
		t.Errorf("Available = %d, want 2", report.Plan.Available)
	}
	if svc.TotalVotes() != 0 {
		t.Errorf("Expected no votes, got %d", svc.TotalVotes())
	}
	if store.Load(context.Background()).Matchers.Len() != 0 {
		t.Error("Expected nothing recorded on a dry run")
	}
}

type stubDirectory struct {
	snap directory.Snapshot
}

func (s stubDirectory) Load(ctx context.Context) (directory.Snapshot, error) {
	return s.snap, nil
}

// cancellingDispatcher cancels the run after the first vote, leaving the
// rest unsent
type cancellingDispatcher struct {
	cancel context.CancelFunc
}

func (d cancellingDispatcher) Dispatch(ctx context.Context, pair models.VotePair, matchers []string) []models.VoteOutcome {
	outcomes := make([]models.VoteOutcome, len(matchers))
	for i, m := range matchers {
		outcomes[i] = models.VoteOutcome{Matcher: m, Err: models.ErrNotSent}
	}
	outcomes[0] = models.VoteOutcome{Matcher: matchers[0], Succeeded: true, Status: http.StatusCreated, Attempts: 1}
	d.cancel()
	return outcomes
}

func TestRun_InterruptedStillRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := cliparse.Config{StateBackend: cliparse.BackendSQLite, StateDir: t.TempDir()}
	store, err := state.Open(ctx, cfg, "run-42")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var snap directory.Snapshot
	for _, e := range []string{"p1@x.io", "p2@x.io", "m1@x.io", "m2@x.io", "m3@x.io"} {
		snap.Size++
		snap.Records = append(snap.Records, models.AccountRecord{Email: e})
	}

	runner := &Runner{
		Directory:  stubDirectory{snap: snap},
		Store:      store,
		Dispatcher: cancellingDispatcher{cancel: cancel},
		Logger:     testutil.DiscardLogger(),
		RunID:      "run-42",
	}

	report, err := runner.Run(ctx, Params{Pair: pair, Votes: 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Interrupted {
		t.Error("Expected Interrupted")
	}

	got := store.Load(context.Background()).Matchers.Sorted()
	if !reflect.DeepEqual(got, []string{"m1@x.io"}) {
		t.Errorf("stored = %v, want [m1@x.io]", got)
	}

	runID, err := store.(*db.Store).RunID(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if runID != "run-42" {
		t.Errorf("RunID = %q, want run-42", runID)
	}
}
