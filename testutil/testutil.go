// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/matchvote/middleware"
	"github.com/danielhkuo/matchvote/models"
)

// Routes served by FakeService
const (
	UsersPath      = "/users/all"
	VotePath       = "/match/make"
	OnboardingPath = "/users/submit-answers"
)

// FakeService is an in-process stand-in for the matchmaking service.
// Configure the exported fields before the first request.
type FakeService struct {
	Server *httptest.Server

	// UsersPayload is served by GET /users/all
	UsersPayload []byte
	UsersStatus  int

	// RequireOnboarding makes votes fail with the onboarding phrase until
	// both members of the couple have submitted the quiz
	RequireOnboarding bool
	// OnboardingStatus overrides the quiz response (default 200)
	OnboardingStatus int
	// OnboardingIgnored accepts quiz submissions without unlocking votes
	OnboardingIgnored bool
	// OnboardingHook runs before each quiz submission is answered
	OnboardingHook func(models.OnboardingRequest)

	// VoteStatus forces a status for specific matchers
	VoteStatus map[string]int
	// VoteHook runs before each vote is answered, outside the lock
	VoteHook func(models.VoteRequest)

	mu          sync.Mutex
	onboarded   map[string]bool
	votes       map[string]int
	onboardings map[string]int
	voteLog     []models.VoteRequest
}

// NewFakeService starts a fake service that is closed when the test ends
func NewFakeService(t *testing.T) *FakeService {
	t.Helper()

	f := &FakeService{
		VoteStatus:  make(map[string]int),
		onboarded:   make(map[string]bool),
		votes:       make(map[string]int),
		onboardings: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+UsersPath, f.handleUsers)
	mux.HandleFunc("POST "+VotePath, f.handleVote)
	mux.HandleFunc("POST "+OnboardingPath, f.handleOnboarding)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)

	return f
}

func (f *FakeService) UsersURL() string      { return f.Server.URL + UsersPath }
func (f *FakeService) VoteURL() string       { return f.Server.URL + VotePath }
func (f *FakeService) OnboardingURL() string { return f.Server.URL + OnboardingPath }

// VoteCount returns how many votes were received for matcher
func (f *FakeService) VoteCount(matcher string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.votes[matcher]
}

// TotalVotes returns the number of vote requests received
func (f *FakeService) TotalVotes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.voteLog)
}

// Votes returns every vote request received, in arrival order
func (f *FakeService) Votes() []models.VoteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.VoteRequest(nil), f.voteLog...)
}

// OnboardingCount returns how many quiz submissions were received for email
func (f *FakeService) OnboardingCount(email string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onboardings[email]
}

// Onboard marks email as having taken the quiz
func (f *FakeService) Onboard(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onboarded[email] = true
}

func (f *FakeService) handleUsers(w http.ResponseWriter, r *http.Request) {
	if f.UsersStatus != 0 && f.UsersStatus != http.StatusOK {
		writeJSON(w, f.UsersStatus, map[string]string{"error": http.StatusText(f.UsersStatus)})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(f.UsersPayload)
}

func (f *FakeService) handleVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	f.mu.Lock()
	f.votes[req.MatcherEmail]++
	f.voteLog = append(f.voteLog, req)
	forced := f.VoteStatus[req.MatcherEmail]
	ready := f.onboarded[req.Person1Email] && f.onboarded[req.Person2Email]
	f.mu.Unlock()

	if f.VoteHook != nil {
		f.VoteHook(req)
	}

	switch {
	case forced != 0:
		writeJSON(w, forced, map[string]string{"error": http.StatusText(forced)})
	case f.RequireOnboarding && !ready:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": models.OnboardingRequiredPhrase})
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Match created"})
	}
}

func (f *FakeService) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req models.OnboardingRequest
	if err := decode(r, &req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	if f.OnboardingHook != nil {
		f.OnboardingHook(req)
	}

	f.mu.Lock()
	f.onboardings[req.Email]++
	failed := f.OnboardingStatus != 0 && f.OnboardingStatus != http.StatusOK
	if !failed && !f.OnboardingIgnored {
		f.onboarded[req.Email] = true
	}
	f.mu.Unlock()

	if failed {
		writeJSON(w, f.OnboardingStatus, map[string]string{"error": http.StatusText(f.OnboardingStatus)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Answers saved"})
}

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// UsersPayload builds a {"users": [...]} body with one object per email
func UsersPayload(emails ...string) []byte {
	users := make([]map[string]string, 0, len(emails))
	for _, e := range emails {
		users = append(users, map[string]string{"email": e})
	}
	body, _ := json.Marshal(map[string]interface{}{"users": users})
	return body
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewClient returns the production client stack with logging discarded
func NewClient() *http.Client {
	return middleware.NewClient(middleware.Headers{BearerToken: "test-token"}, 5*time.Second, DiscardLogger())
}
