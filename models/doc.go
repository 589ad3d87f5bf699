// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request payloads, domain types, and errors shared
by every other package.

# Request Types

JSON bodies sent to the matchmaking service:

  - VoteRequest: person1_email, person2_email, matcher_email
  - OnboardingRequest: email, answers, gender, preference

# Domain Types

  - AccountRecord: a directory entry with a resolved email
  - VotePair: the couple a run votes for
  - VoteOutcome: final result of one matcher's vote (retry included)
  - MatcherSet: set of matcher emails with a pure Union
  - UsedMatchers: the persisted dedup record

# Errors

Validation errors abort a run before any vote is sent:

	ErrInvalidVoteCount
	ErrInvalidPair
	ErrInsufficientUsers
	ErrInsufficientAvailableMatchers

They are returned as *ValidationError, which matches ErrValidation and its
Reason under errors.Is:

	if errors.Is(err, models.ErrInsufficientUsers) { ... }

Per-matcher failures are stored on VoteOutcome.Err and never abort a run:

	ErrTransport            timeout, connection failure
	ErrPreconditionFailure  onboarding still required after the retry
	ErrRemoteRejection      any other non-2xx response
	ErrNotSent              run interrupted before the vote was issued
*/
package models
