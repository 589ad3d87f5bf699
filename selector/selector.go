// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selector

import (
	"github.com/danielhkuo/matchvote/directory"
	"github.com/danielhkuo/matchvote/models"
)

// ReservedSlots is the number of directory entries set aside for the couple
// when checking that the directory is big enough
const ReservedSlots = 2

// Candidates returns every eligible matcher in snapshot order: not one of
// the pair, not already used, each email once.
func Candidates(snap directory.Snapshot, pair models.VotePair, used models.MatcherSet) []string {
	seen := make(map[string]bool, len(snap.Records))
	var out []string
	for _, rec := range snap.Records {
		email := rec.Email
		if email == "" || pair.Contains(email) || used.Has(email) || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out
}

// Select picks the first n eligible matchers in snapshot order.
// All failures are *models.ValidationError and happen before any vote is sent.
func Select(snap directory.Snapshot, pair models.VotePair, used models.MatcherSet, n int) ([]string, error) {
	if n <= 0 {
		return nil, &models.ValidationError{Reason: models.ErrInvalidVoteCount}
	}
	if err := pair.Validate(); err != nil {
		return nil, err
	}

	// The couple is reserved whether or not it appears in the directory
	if snap.Size < n+ReservedSlots {
		return nil, &models.ValidationError{
			Reason: models.ErrInsufficientUsers,
			Need:   n + ReservedSlots,
			Have:   snap.Size,
		}
	}

	available := Candidates(snap, pair, used)
	if len(available) < n {
		return nil, &models.ValidationError{
			Reason: models.ErrInsufficientAvailableMatchers,
			Need:   n,
			Have:   len(available),
		}
	}

	selected := make([]string, n)
	copy(selected, available[:n])
	return selected, nil
}
