package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	mapset "github.com/deckarep/golang-set/v2"
)

// Engine reconciles the local tree with the remote store in two serial
// passes: remote-to-local delta application, then local-to-remote. Each pass
// must see the complete listing (or walk) before its deletion sweep, so no
// transfer runs concurrently with enumeration.
type Engine struct {
	remote   RemoteClient
	store    *StateStore
	scanner  *Scanner
	lister   *RemoteLister
	transfer *Transfer
	rootDir  string
}

func NewEngine(remote RemoteClient, rootDir string) *Engine {
	return &Engine{
		remote:   remote,
		store:    NewStateStore(rootDir),
		scanner:  NewScanner(rootDir),
		lister:   NewRemoteLister(remote),
		transfer: NewTransfer(remote, rootDir),
		rootDir:  rootDir,
	}
}

// Run performs one full sync: load state, remote pass, save, local pass,
// save. A pass failure leaves the state as of the last successful save; the
// next invocation is the retry mechanism.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.store.Lock(); err != nil {
		return err
	}
	defer e.store.Unlock()

	state := e.store.Load()

	slog.Info("updating from remote")
	if err := e.ApplyRemoteDelta(ctx, state); err != nil {
		return fmt.Errorf("remote pass: %w", err)
	}
	if err := e.store.Save(state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	slog.Info("checking for new or updated local files")
	if err := e.ApplyLocalDelta(ctx, state); err != nil {
		return fmt.Errorf("local pass: %w", err)
	}
	if err := e.store.Save(state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	slog.Info("sync complete")
	return nil
}

// ApplyRemoteDelta walks the remote listing, downloading files that are new
// or changed remotely and materializing remote folders, then deletes local
// copies of previously synced paths that vanished from the listing.
func (e *Engine) ApplyRemoteDelta(ctx context.Context, state *SyncState) error {
	seen := mapset.NewThreadUnsafeSet[string]()

	err := e.lister.ListAll(ctx, func(entry RemoteEntry) error {
		switch en := entry.(type) {
		case *RemoteFile:
			seen.Add(en.Path)
			rec, ok := state.LocalFiles[en.Path]
			switch {
			case !ok:
				return e.transfer.Download(ctx, state, en.Path, "not found locally")
			case en.Rev != rec.Rev:
				// revision is the sole change signal from the remote side;
				// timestamp drift with an unchanged rev is ignored
				return e.transfer.Download(ctx, state, en.Path, "remote file changed")
			}
		case *RemoteFolder:
			return e.makeLocalDir(state, en.Path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// deletion sweep: a previously synced path missing from the full listing
	// was deleted remotely
	for path := range state.RemoteFiles {
		if seen.Contains(path) {
			continue
		}
		if _, ok := state.LocalFiles[path]; !ok {
			continue
		}
		if err := e.transfer.DeleteLocal(state, path); err != nil {
			return err
		}
	}

	return nil
}

// makeLocalDir ensures a directory exists for a remote folder. A local file
// occupying the folder's path loses to the folder.
func (e *Engine) makeLocalDir(state *SyncState, relPath string) error {
	abs := e.transfer.absPath(relPath)

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("making directory", "path", relPath)
		return os.MkdirAll(abs, 0o755)
	case err != nil:
		return fmt.Errorf("make dir %s: %w", relPath, err)
	case !info.IsDir():
		slog.Info("making directory", "path", relPath, "reason", "replacing local file")
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("make dir %s: %w", relPath, err)
		}
		// the path is a folder now on both sides, so any file record for it
		// is stale in both maps
		state.Forget(relPath)
		return os.MkdirAll(abs, 0o755)
	}

	return nil
}

// ApplyLocalDelta scans the local tree, uploading files that are new or
// changed locally, then deletes remote copies of previously synced paths that
// no longer exist on disk.
func (e *Engine) ApplyLocalDelta(ctx context.Context, state *SyncState) error {
	files, err := e.scanner.Scan()
	if err != nil {
		return err
	}

	for path, file := range files {
		rec, synced := state.LocalFiles[path]
		switch {
		case !hasRemote(state, path):
			if err := e.transfer.Upload(ctx, state, path, "not found remotely"); err != nil {
				return err
			}
		case !synced || file.ModTime.After(rec.ModifiedAt):
			// the local filesystem is the source of truth for "changed since
			// last sync", so mtime, not content, is the signal here
			if err := e.transfer.Upload(ctx, state, path, "local file changed"); err != nil {
				return err
			}
		}
	}

	// deletion sweep: a previously synced path missing from the walk was
	// deleted locally
	for path := range state.LocalFiles {
		if _, ok := files[path]; ok {
			continue
		}
		if err := e.transfer.DeleteRemote(ctx, state, path); err != nil {
			return err
		}
	}

	return nil
}

func hasRemote(state *SyncState, path string) bool {
	_, ok := state.RemoteFiles[path]
	return ok
}
