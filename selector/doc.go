// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package selector picks the matchers for a run.

	matchers, err := selector.Select(snap, pair, used, n)

A directory entry is a candidate when its email is not one of the couple,
not in the used-matcher set, and not already admitted. The first n
candidates are returned in snapshot order, so identical inputs always give
the same selection.

Select fails with a *models.ValidationError when:

  - n is not positive (ErrInvalidVoteCount)
  - a couple email is missing (ErrInvalidPair)
  - the directory has fewer than n+2 entries (ErrInsufficientUsers)
  - fewer than n candidates remain (ErrInsufficientAvailableMatchers)
*/
package selector
