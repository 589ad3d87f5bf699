// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/danielhkuo/matchvote/models"
)

// FileName is the state file inside the state directory
const FileName = "used_matchers.json"

// FileStore keeps the state as a JSON document on disk
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by <dir>/used_matchers.json
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, FileName), now: time.Now}
}

// Path returns the state file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing or corrupt file yields an empty set.
func (s *FileStore) Load(ctx context.Context) models.UsedMatchers {
	used := models.UsedMatchers{Matchers: models.NewMatcherSet()}

	payload, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return used
	}
	if err != nil {
		slog.Warn("failed to read state file, starting empty", "path", s.path, "error", err)
		return used
	}
	if !gjson.ValidBytes(payload) {
		slog.Warn("state file is not valid JSON, starting empty", "path", s.path)
		return used
	}

	root := gjson.ParseBytes(payload)
	list := root
	if root.IsObject() {
		list = root.Get("matchers")
		if t, err := time.Parse(time.RFC3339, root.Get("updated_at").String()); err == nil {
			used.UpdatedAt = t
		}
	}

	if !list.IsArray() {
		slog.Warn("state file has no matcher list, starting empty", "path", s.path)
		return used
	}

	// Non-string entries are skipped
	list.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			used.Matchers.Add(item.Str)
		}
		return true
	})

	return used
}

// Save overwrites the state file with matchers. The write goes through a
// temp file and a rename so readers never see a partial document.
func (s *FileStore) Save(ctx context.Context, matchers models.MatcherSet) error {
	doc := models.UsedMatchersFile{
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
		Matchers:  matchers.Sorted(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	slog.Info("used matchers saved", "path", s.path, "count", len(doc.Matchers))
	return nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
