package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
)

const (
	// StateFileName is the persisted sync state, living in the sync root.
	// The scanner always excludes it.
	StateFileName = ".syncbox-state.json"

	lockFileName = ".syncbox.lock"
)

var ErrSyncAlreadyRunning = errors.New("sync already running")

// StateStore loads and saves the SyncState across runs. Loads never fail: a
// missing or corrupt state file yields an empty state, at worst costing
// duplicate transfers on the next run. Saves replace the file atomically so a
// crash mid-save keeps the previous valid state.
type StateStore struct {
	path string
	// tmpDir must stay on the same filesystem as path so the rename in Save
	// is atomic; it defaults to the sync root
	tmpDir string
	flock  *flock.Flock
}

func NewStateStore(rootDir string) *StateStore {
	return &StateStore{
		path:   filepath.Join(rootDir, StateFileName),
		tmpDir: rootDir,
		flock:  flock.New(filepath.Join(rootDir, lockFileName)),
	}
}

func (s *StateStore) Path() string {
	return s.path
}

// Lock takes the advisory run lock. Exactly one run may mutate the state file
// at a time.
func (s *StateStore) Lock() error {
	locked, err := s.flock.TryLock()
	if err != nil {
		return fmt.Errorf("state lock: %w", err)
	}
	if !locked {
		return ErrSyncAlreadyRunning
	}
	return nil
}

func (s *StateStore) Unlock() error {
	return s.flock.Unlock()
}

// Load reads the persisted state. Missing, unreadable or corrupt files all
// yield a fresh empty state.
func (s *StateStore) Load() *SyncState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("state file unreadable, starting fresh", "path", s.path, "error", err)
		}
		return NewSyncState()
	}

	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("state file corrupt, starting fresh", "path", s.path, "error", err)
		return NewSyncState()
	}

	if state.LocalFiles == nil {
		state.LocalFiles = make(map[string]FileRecord)
	}
	if state.RemoteFiles == nil {
		state.RemoteFiles = make(map[string]FileRecord)
	}

	return &state
}

// Save writes the state to a temp file in the same directory and renames it
// over the state file.
func (s *StateStore) Save(state *SyncState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("state marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.tmpDir, ".syncbox-state-*.tmp")
	if err != nil {
		return fmt.Errorf("state temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("state write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("state sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("state close: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("state rename: %w", err)
	}

	return nil
}
