package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/openmined/syncbox/internal/boxsdk"
	"github.com/openmined/syncbox/internal/utils"
)

const (
	// LargeFileThreshold is the size above which uploads switch to a chunked
	// session, matching the store's single-request limit.
	LargeFileThreshold = int64(140 * 1000 * 1000)

	// UploadChunkSize is the session chunk size. Progress is reported per
	// chunk, not per byte.
	UploadChunkSize = int64(10 * 1000 * 1000)
)

// Transfer moves file content between the replicas and records the outcome in
// the SyncState. Every successful operation leaves the path fully
// synchronized (identical records in both maps) or fully forgotten.
type Transfer struct {
	remote    RemoteClient
	rootDir   string
	threshold int64
	chunkSize int64
}

func NewTransfer(remote RemoteClient, rootDir string) *Transfer {
	return &Transfer{
		remote:    remote,
		rootDir:   rootDir,
		threshold: LargeFileThreshold,
		chunkSize: UploadChunkSize,
	}
}

func (t *Transfer) absPath(relPath string) string {
	return filepath.Join(t.rootDir, filepath.FromSlash(relPath))
}

// Upload sends a local file to the store, chunked if it exceeds the large
// file threshold, and records the new revision in both state maps.
func (t *Transfer) Upload(ctx context.Context, state *SyncState, relPath string, reason string) error {
	abs := t.absPath(relPath)

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("upload %s: %w", relPath, err)
	}

	slog.Info("uploading", "path", relPath, "size", humanize.Bytes(uint64(info.Size())), "reason", reason)

	var rev string
	if info.Size() > t.threshold {
		rev, err = t.uploadChunked(ctx, abs, relPath, info.Size())
	} else {
		rev, err = t.uploadWhole(ctx, abs, relPath)
	}
	if err != nil {
		return fmt.Errorf("upload %s: %w", relPath, err)
	}

	// re-stat so ModifiedAt reflects the file as it was uploaded
	info, err = os.Stat(abs)
	if err != nil {
		return fmt.Errorf("upload %s: %w", relPath, err)
	}

	state.SetSynced(relPath, FileRecord{Rev: rev, ModifiedAt: info.ModTime()})
	return nil
}

func (t *Transfer) uploadWhole(ctx context.Context, abs, relPath string) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}

	resp, err := t.remote.UploadWhole(ctx, data, relPath, true)
	if err != nil {
		return "", err
	}
	return resp.Rev, nil
}

// uploadChunked streams the file through an upload session: the first chunk
// opens the session, full chunks are appended with a monotonically increasing
// offset, and the final (possibly short) chunk commits the destination path
// with overwrite semantics.
func (t *Transfer) uploadChunked(ctx context.Context, abs, relPath string, size int64) (string, error) {
	file, err := os.Open(abs)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, t.chunkSize)

	// first chunk opens the session
	n, err := io.ReadFull(file, buf)
	if err != nil {
		return "", fmt.Errorf("read chunk: %w", err)
	}
	sessionID, err := t.remote.UploadSessionStart(ctx, buf[:n])
	if err != nil {
		return "", err
	}
	offset := int64(n)
	t.logChunk(relPath, offset, size)

	// intermediate full chunks
	for size-offset > t.chunkSize {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := io.ReadFull(file, buf)
		if err != nil {
			return "", fmt.Errorf("read chunk: %w", err)
		}
		if err := t.remote.UploadSessionAppend(ctx, buf[:n], sessionID, offset); err != nil {
			return "", err
		}
		offset += int64(n)
		t.logChunk(relPath, offset, size)
	}

	// final short chunk commits the session
	rest := make([]byte, size-offset)
	if _, err := io.ReadFull(file, rest); err != nil {
		return "", fmt.Errorf("read chunk: %w", err)
	}
	resp, err := t.remote.UploadSessionFinish(ctx, rest, sessionID, offset, relPath, true)
	if err != nil {
		return "", err
	}

	return resp.Rev, nil
}

func (t *Transfer) logChunk(relPath string, offset, size int64) {
	slog.Debug("upload chunk", "path", relPath, "sent", humanize.Bytes(uint64(offset)), "total", humanize.Bytes(uint64(size)))
}

// Download streams a remote file to the local tree, creating parent
// directories as needed, and records its revision in both state maps.
func (t *Transfer) Download(ctx context.Context, state *SyncState, relPath string, reason string) error {
	abs := t.absPath(relPath)

	slog.Info("downloading", "path", relPath, "reason", reason)

	if err := utils.EnsureParent(abs); err != nil {
		return fmt.Errorf("download %s: %w", relPath, err)
	}

	rev, err := t.remote.DownloadToFile(ctx, relPath, abs)
	if err != nil {
		return fmt.Errorf("download %s: %w", relPath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("download %s: %w", relPath, err)
	}

	state.SetSynced(relPath, FileRecord{Rev: rev, ModifiedAt: info.ModTime()})
	return nil
}

// DeleteLocal removes the local copy of a path deleted remotely. A file that
// is already gone counts as success. The path leaves both maps together.
func (t *Transfer) DeleteLocal(state *SyncState, relPath string) error {
	slog.Info("deleting locally", "path", relPath, "reason", "file no longer on remote")

	err := os.Remove(t.absPath(relPath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete local %s: %w", relPath, err)
	}

	state.Forget(relPath)
	return nil
}

// DeleteRemote removes the remote copy of a path deleted locally. A file the
// store no longer has counts as success. The path leaves both maps together.
func (t *Transfer) DeleteRemote(ctx context.Context, state *SyncState, relPath string) error {
	slog.Info("deleting on remote", "path", relPath, "reason", "file deleted locally")

	err := t.remote.Delete(ctx, relPath)
	if err != nil && !errors.Is(err, boxsdk.ErrFileNotFound) {
		return fmt.Errorf("delete remote %s: %w", relPath, err)
	}

	state.Forget(relPath)
	return nil
}
