// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"errors"

	"github.com/danielhkuo/matchvote/models"
)

// Summary classifies the outcomes of one dispatch
type Summary struct {
	Outcomes  []models.VoteOutcome
	Succeeded int
	Failed    int
	// SuccessfulMatchers is sorted and free of duplicates
	SuccessfulMatchers []string
}

// Aggregate classifies outcomes. It has no side effects.
func Aggregate(outcomes []models.VoteOutcome) Summary {
	s := Summary{Outcomes: outcomes}

	successful := models.NewMatcherSet()
	for _, o := range outcomes {
		if o.Succeeded {
			s.Succeeded++
			successful.Add(o.Matcher)
		} else {
			s.Failed++
		}
	}

	s.SuccessfulMatchers = successful.Sorted()
	return s
}

// SuccessSet returns the successful matchers as a set
func (s Summary) SuccessSet() models.MatcherSet {
	return models.NewMatcherSet(s.SuccessfulMatchers...)
}

// Failures returns the failed outcomes in dispatch order
func (s Summary) Failures() []models.VoteOutcome {
	var out []models.VoteOutcome
	for _, o := range s.Outcomes {
		if !o.Succeeded {
			out = append(out, o)
		}
	}
	return out
}

// CountByKind tallies failures by error kind
func (s Summary) CountByKind() map[error]int {
	kinds := []error{
		models.ErrTransport,
		models.ErrPreconditionFailure,
		models.ErrRemoteRejection,
		models.ErrNotSent,
	}

	counts := make(map[error]int)
	for _, o := range s.Failures() {
		for _, kind := range kinds {
			if errors.Is(o.Err, kind) {
				counts[kind]++
				break
			}
		}
	}
	return counts
}

// Retried returns how many outcomes went through the onboarding retry
func (s Summary) Retried() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Retried {
			n++
		}
	}
	return n
}
