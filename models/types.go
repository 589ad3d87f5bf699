// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Onboarding defaults sent with every quiz submission
const (
	DefaultGender     = "male"
	DefaultPreference = "women"
)

// OnboardingRequiredPhrase is the 4xx body text the service returns while
// either member of the couple has not taken the quiz
const OnboardingRequiredPhrase = "Both users must complete onboarding quiz first"

// Request types

// VoteRequest is the POST body for one vote
type VoteRequest struct {
	Person1Email string `json:"person1_email"`
	Person2Email string `json:"person2_email"`
	MatcherEmail string `json:"matcher_email"`
}

// OnboardingRequest is the POST body for one quiz submission
// answers: question number -> score
type OnboardingRequest struct {
	Email      string             `json:"email"`
	Answers    map[string]float64 `json:"answers"`
	Gender     string             `json:"gender"`
	Preference string             `json:"preference"`
}

// Domain types

// AccountRecord is one directory entry that resolved to an email
type AccountRecord struct {
	Email string `json:"email"`
}

// VotePair is the couple every vote in a run is cast for
type VotePair struct {
	Person1 string `json:"person1_email"`
	Person2 string `json:"person2_email"`
}

// Validate checks that both members are present
func (p VotePair) Validate() error {
	if strings.TrimSpace(p.Person1) == "" {
		return &ValidationError{Reason: ErrInvalidPair, Detail: "person1 email is required"}
	}
	if strings.TrimSpace(p.Person2) == "" {
		return &ValidationError{Reason: ErrInvalidPair, Detail: "person2 email is required"}
	}
	return nil
}

// Contains reports whether email is one of the pair
func (p VotePair) Contains(email string) bool {
	return email == p.Person1 || email == p.Person2
}

// Request builds the vote payload for one matcher
func (p VotePair) Request(matcher string) VoteRequest {
	return VoteRequest{
		Person1Email: p.Person1,
		Person2Email: p.Person2,
		MatcherEmail: matcher,
	}
}

// VoteOutcome is the final result of one matcher's vote, retry included
type VoteOutcome struct {
	Matcher   string `json:"matcher_email"`
	Succeeded bool   `json:"succeeded"`
	Status    int    `json:"status,omitempty"` // 0 when no response was received
	Response  string `json:"response"`         // truncated body or error text
	Attempts  int    `json:"attempts"`
	Retried   bool   `json:"retried"`
	Err       error  `json:"-"` // nil on success
}

// StatusOrError returns the HTTP status, or "ERROR" when the vote never got one
func (o VoteOutcome) StatusOrError() string {
	if o.Status == 0 {
		return "ERROR"
	}
	return strconv.Itoa(o.Status)
}

// MatcherSet is a set of matcher emails
type MatcherSet map[string]struct{}

// NewMatcherSet builds a set from emails, skipping blanks
func NewMatcherSet(emails ...string) MatcherSet {
	s := make(MatcherSet, len(emails))
	for _, e := range emails {
		s.Add(e)
	}
	return s
}

// Add inserts a trimmed, non-empty email
func (s MatcherSet) Add(email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		return
	}
	s[email] = struct{}{}
}

// Has reports membership. A nil set has no members.
func (s MatcherSet) Has(email string) bool {
	_, ok := s[email]
	return ok
}

func (s MatcherSet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order
func (s MatcherSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy
func (s MatcherSet) Clone() MatcherSet {
	out := make(MatcherSet, len(s))
	for e := range s {
		out[e] = struct{}{}
	}
	return out
}

// Union returns a new set holding the members of s and other.
// Neither input is modified.
func (s MatcherSet) Union(other MatcherSet) MatcherSet {
	out := s.Clone()
	for e := range other {
		out[e] = struct{}{}
	}
	return out
}

// UsedMatchers is the persisted dedup record
type UsedMatchers struct {
	UpdatedAt time.Time  `json:"updated_at"`
	Matchers  MatcherSet `json:"-"`
}

// UsedMatchersFile is the on-disk shape of UsedMatchers
type UsedMatchersFile struct {
	UpdatedAt string   `json:"updated_at"`
	Matchers  []string `json:"matchers"`
}
