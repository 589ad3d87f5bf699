// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP client middleware and helper functions.

# Request Logging

Wrap a transport with request logging:

	rt := middleware.WithLogging(http.DefaultTransport, logger)

Logs completion (method, path, status, duration_ms), or a warning with the
error when the request never got a response.

# Service Headers

The matchmaking service expects browser-style headers:

	rt := middleware.WithHeaders(next, middleware.Headers{
		Referer:     cfg.Referer,
		Origin:      cfg.Origin,
		BearerToken: cfg.BearerToken,
	})

Headers already set on a request are left alone.

# Client

NewClient stacks both round trippers over http.DefaultTransport:

	client := middleware.NewClient(headers, cfg.RequestTimeout, logger)

# JSON Helpers

	resp, err := middleware.PostJSON(ctx, client, url, payload)
	resp, err := middleware.Get(ctx, client, url)

Both read the whole (size-limited) body so callers can inspect it after
the connection is released. Response.OK and Response.ClientError classify
the status.
*/
package middleware
