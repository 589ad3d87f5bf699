// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package results aggregates vote outcomes.

	summary := results.Aggregate(outcomes)
	fmt.Println(summary.Succeeded, summary.Failed)

Aggregate is pure: it never persists anything. The caller hands
summary.SuccessSet() to the state package to record the matchers that
voted.
*/
package results
