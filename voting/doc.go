// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting runs one vote campaign end to end.

# Flow

 1. Validate the vote count and the couple
 2. Load the user directory and the used-matcher state
 3. Select the first N eligible matchers
 4. Dispatch the votes (skipped on a dry run)
 5. Aggregate the outcomes
 6. Record the successful matchers, once

Steps 1-3 send no vote, so a validation failure never leaves a partial
campaign behind.

# Interrupts

Cancelling the run context stops votes that were not sent yet. Votes
already sent finish, are reported, and their matchers are recorded; the
final save ignores cancellation.

# Run IDs

Every run gets a UUID, used in log lines and in the SQL state metadata.
*/
package voting
