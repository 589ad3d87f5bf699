// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package directory reads the user directory that matchers are chosen from.

# Payload Shapes

Parse accepts any of:

	[{...}, {...}]
	{"users": [...]}   {"data": [...]}   {"result": [...]}   {"items": [...]}

Wrapper keys are tried in that order; the first one holding an array wins.
Anything else, including invalid JSON, yields an empty Snapshot rather than
an error.

Each object may carry its email as "email", "user.email" or
"profile.email". Objects without a non-empty string email are counted in
Snapshot.Size but never appear in Snapshot.Records.

# Loading

	src := &directory.Source{Client: client, UsersURL: url, CachePath: "users_all.json"}
	snap, err := src.Load(ctx)

Load reads CachePath when it exists (unless Refresh is set), otherwise it
fetches UsersURL and rewrites the cache, pretty-printed.
*/
package directory
