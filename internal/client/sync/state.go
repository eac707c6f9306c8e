package sync

import (
	"time"
)

// FileRecord describes one synchronized file as of its last successful
// transfer. Rev is the store's opaque content version and is the sole change
// signal for the remote side; ModifiedAt is the local filesystem mtime
// observed right after the transfer and is the change signal for the local
// side.
type FileRecord struct {
	Rev        string    `json:"rev"`
	ModifiedAt time.Time `json:"modified"`
}

// SyncState is the persisted picture of both replicas, keyed by slash-separated
// paths relative to the sync root. A fully synchronized path holds identical
// records in both maps; a path present in exactly one map marks a partial
// operation that a later run must resolve.
type SyncState struct {
	LocalFiles  map[string]FileRecord `json:"localFiles"`
	RemoteFiles map[string]FileRecord `json:"remoteFiles"`
}

func NewSyncState() *SyncState {
	return &SyncState{
		LocalFiles:  make(map[string]FileRecord),
		RemoteFiles: make(map[string]FileRecord),
	}
}

// SetSynced records a completed transfer, making the path fully synchronized.
func (s *SyncState) SetSynced(path string, rec FileRecord) {
	s.LocalFiles[path] = rec
	s.RemoteFiles[path] = rec
}

// Forget removes the path from both maps. Deletions must never leave a path
// in exactly one map.
func (s *SyncState) Forget(path string) {
	delete(s.LocalFiles, path)
	delete(s.RemoteFiles, path)
}
