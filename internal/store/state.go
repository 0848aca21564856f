// Package store persists the small amount of state chatpanel keeps between
// runs: the last visited URL and the last manual panel width.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// CurrentSchemaVersion is the current version of the state schema.
	CurrentSchemaVersion = 1

	lastURLFile = "last_url"
	stateFile   = "state.json"
)

// State is the JSON document kept in state.json.
type State struct {
	// LastManualWidth is the width committed by the last drag resize, 0 for none.
	LastManualWidth int `json:"last_manual_width,omitempty"`

	UpdatedAt int64 `json:"updated_at,omitempty"` // Unix timestamp

	SchemaVersion int `json:"schema_version"`
}

// DefaultState returns a State with no remembered width.
func DefaultState() *State {
	return &State{SchemaVersion: CurrentSchemaVersion}
}

// Store reads and writes files in a single state directory.
// Read failures never surface to callers as errors; they fall back to
// defaults and are logged.
type Store struct {
	mu     sync.RWMutex
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Store rooted at dir. The directory is created lazily on
// the first write.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Dir returns the state directory.
func (s *Store) Dir() string {
	return s.dir
}

// LastURL returns the persisted URL, or def when the file is absent,
// unreadable or does not hold an http(s) URL.
func (s *Store) LastURL(def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, lastURLFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read last url", "error", err)
		}
		return def
	}

	raw := strings.TrimSpace(string(data))
	if !validURL(raw) {
		s.logger.Warn("ignoring invalid last url", "url", raw)
		return def
	}
	return raw
}

// SaveLastURL overwrites the persisted URL.
func (s *Store) SaveLastURL(u string) error {
	if !validURL(u) {
		return fmt.Errorf("invalid url %q", u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(lastURLFile, []byte(u+"\n"))
}

// LoadState loads state.json. A missing or corrupted file yields the
// default state.
func (s *Store) LoadState() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadStateLocked()
}

// SaveState writes state.json atomically via a temp file.
func (s *Store) SaveState(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveStateLocked(state)
}

// SetLastManualWidth records a committed manual width.
func (s *Store) SetLastManualWidth(width int) error {
	if width < 0 {
		return fmt.Errorf("invalid width %d", width)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.loadStateLocked()
	if state.LastManualWidth == width {
		return nil
	}
	state.LastManualWidth = width
	return s.saveStateLocked(state)
}

func (s *Store) loadStateLocked() *State {
	data, err := os.ReadFile(filepath.Join(s.dir, stateFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read state", "error", err)
		}
		return DefaultState()
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state file corrupted, using defaults", "error", err)
		return DefaultState()
	}
	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	if state.LastManualWidth < 0 {
		state.LastManualWidth = 0
	}
	return &state
}

func (s *Store) saveStateLocked(state *State) error {
	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	state.UpdatedAt = s.now().Unix()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return s.writeAtomic(stateFile, data)
}

func (s *Store) writeAtomic(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
