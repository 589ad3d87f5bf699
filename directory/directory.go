// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/danielhkuo/matchvote/middleware"
	"github.com/danielhkuo/matchvote/models"
)

// wrapperKeys are the object keys a user array may be nested under, in
// the order they are tried
var wrapperKeys = []string{"users", "data", "result", "items"}

// nestedKeys are the sub-objects an email may live under
var nestedKeys = []string{"user", "profile"}

// Snapshot is one read of the user directory
type Snapshot struct {
	// Size counts every object entry, with or without an email
	Size int
	// Records holds the entries that resolved to an email, in payload order
	Records []models.AccountRecord
}

// Parse decodes a users payload of any accepted shape.
// Unknown shapes and invalid JSON yield an empty snapshot.
func Parse(payload []byte) Snapshot {
	if !gjson.ValidBytes(payload) {
		return Snapshot{}
	}

	users := usersArray(gjson.ParseBytes(payload))
	if !users.IsArray() {
		return Snapshot{}
	}

	var snap Snapshot
	users.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		snap.Size++
		if email := resolveEmail(item); email != "" {
			snap.Records = append(snap.Records, models.AccountRecord{Email: email})
		}
		return true
	})
	return snap
}

func usersArray(root gjson.Result) gjson.Result {
	if root.IsArray() {
		return root
	}
	if !root.IsObject() {
		return gjson.Result{}
	}
	for _, key := range wrapperKeys {
		if v := root.Get(key); v.IsArray() {
			return v
		}
	}
	return gjson.Result{}
}

func resolveEmail(user gjson.Result) string {
	if email := stringField(user, "email"); email != "" {
		return email
	}
	for _, parent := range nestedKeys {
		nested := user.Get(parent)
		if !nested.IsObject() {
			continue
		}
		if email := stringField(nested, "email"); email != "" {
			return email
		}
	}
	return ""
}

func stringField(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

// Source loads the directory from a cache file or the remote endpoint
type Source struct {
	Client    *http.Client
	UsersURL  string
	CachePath string
	Refresh   bool // ignore the cache
	Logger    *slog.Logger
}

// Load returns the cached snapshot when present, otherwise fetches it
func (s *Source) Load(ctx context.Context) (Snapshot, error) {
	if !s.Refresh && s.CachePath != "" {
		payload, err := os.ReadFile(s.CachePath)
		if err == nil {
			snap := Parse(payload)
			s.logger().Info("loaded users from cache",
				"path", s.CachePath,
				"entries", snap.Size,
				"with_email", len(snap.Records),
			)
			return snap, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("failed to read users cache: %w", err)
		}
	}

	return s.Fetch(ctx)
}

// Fetch downloads the directory and refreshes the cache file
func (s *Source) Fetch(ctx context.Context) (Snapshot, error) {
	if s.UsersURL == "" {
		return Snapshot{}, errors.New("users URL is required")
	}

	resp, err := middleware.Get(ctx, s.Client, s.UsersURL)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch users: %w", err)
	}
	if !resp.OK() {
		return Snapshot{}, fmt.Errorf("failed to fetch users: status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(resp.Body) {
		return Snapshot{}, errors.New("failed to fetch users: response is not valid JSON")
	}

	if s.CachePath != "" {
		if err := writeCache(s.CachePath, resp.Body); err != nil {
			// Non-fatal: the snapshot is still usable for this run
			s.logger().Warn("failed to write users cache", "path", s.CachePath, "error", err)
		}
	}

	snap := Parse(resp.Body)
	s.logger().Info("fetched users",
		"url", s.UsersURL,
		"entries", snap.Size,
		"with_email", len(snap.Records),
	)
	return snap, nil
}

func (s *Source) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func writeCache(path string, payload []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, pretty.Bytes(), 0o644)
}
