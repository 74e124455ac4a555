// Package prefs persists the one user preference that survives restarts: the
// job table page size.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jobdeck/jobdeck/internal/core/logger"
)

// DefaultPageSize is returned whenever the stored value is missing or
// unreadable.
const DefaultPageSize = 20

type fileFormat struct {
	PageSize int `json:"page_size"`
}

// Store reads and writes the preference file. Writes are best-effort;
// failures are logged once per Store so a read-only config dir does not spam
// the log on every page-size change.
type Store struct {
	path        string
	warnedWrite bool
}

// NewStore uses an explicit file path. Empty means the default location under
// the user config dir.
func NewStore(path string) *Store {
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(dir, "jobdeck", "prefs.json")
		}
	}
	return &Store{path: path}
}

// PageSize returns the stored page size, falling back to the default on any
// access failure.
func (s *Store) PageSize() int {
	if s.path == "" {
		return DefaultPageSize
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return DefaultPageSize
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil || f.PageSize < 0 {
		return DefaultPageSize
	}
	return f.PageSize
}

// SetPageSize stores n best-effort.
func (s *Store) SetPageSize(n int) {
	if s.path == "" || n < 0 {
		return
	}
	data, _ := json.Marshal(fileFormat{PageSize: n})
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.warnWrite(err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.warnWrite(err)
	}
}

func (s *Store) warnWrite(err error) {
	if s.warnedWrite {
		return
	}
	s.warnedWrite = true
	logger.Warn("could not persist preferences", "path", s.path, "error", err)
}
