// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Response size limits
const (
	MaxBodyBytes      = 64 << 10
	MaxDirectoryBytes = 32 << 20
)

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// WithLogging wraps a transport with request logging
func WithLogging(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		logger.Debug("request started",
			"method", r.Method,
			"path", r.URL.Path,
		)

		resp, err := next.RoundTrip(r)

		duration := time.Since(start)
		if err != nil {
			logger.Warn("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
			return nil, err
		}

		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
		)
		return resp, nil
	})
}

// Headers holds the browser-style headers the service expects
type Headers struct {
	Referer     string
	Origin      string
	BearerToken string
	UserAgent   string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:147.0) Gecko/20100101 Firefox/147.0"

// WithHeaders sets the service headers on every request.
// Headers already present on the request are kept.
func WithHeaders(next http.RoundTripper, h Headers) http.RoundTripper {
	ua := h.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		// RoundTrippers must not modify the caller's request
		r = r.Clone(r.Context())

		setDefault(r.Header, "User-Agent", ua)
		setDefault(r.Header, "Accept", "*/*")
		setDefault(r.Header, "Accept-Language", "en-US,en;q=0.9")
		if h.Referer != "" {
			setDefault(r.Header, "Referer", h.Referer)
		}
		if h.Origin != "" {
			setDefault(r.Header, "Origin", h.Origin)
		}
		if h.BearerToken != "" {
			setDefault(r.Header, "Authorization", "Bearer "+h.BearerToken)
		}

		return next.RoundTrip(r)
	})
}

func setDefault(header http.Header, key, value string) {
	if header.Get(key) == "" {
		header.Set(key, value)
	}
}

// NewClient builds the HTTP client used for every call to the service
func NewClient(h Headers, timeout time.Duration, logger *slog.Logger) *http.Client {
	transport := WithLogging(WithHeaders(http.DefaultTransport, h), logger)
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Response is a fully-read HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ClientError reports a 4xx status
func (r Response) ClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// PostJSON sends v as a JSON body and reads the response
func PostJSON(ctx context.Context, client *http.Client, url string, v interface{}) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	return do(client, req, MaxBodyBytes)
}

// Get issues a GET and reads the response
func Get(ctx context.Context, client *http.Client, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, err
	}
	return do(client, req, MaxDirectoryBytes)
}

func do(client *http.Client, req *http.Request, limit int64) (Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("failed to read response: %w", err)
	}

	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}
