package sync

import (
	"context"

	"github.com/openmined/syncbox/internal/boxsdk"
)

// RemoteClient is the object-store capability the engine needs. Paths are
// root-relative; the SDK owns the store's own path conventions.
// *boxsdk.FilesAPI satisfies it.
type RemoteClient interface {
	ListFolder(ctx context.Context, path string, recursive bool) (*boxsdk.ListFolderResponse, error)
	ListFolderContinue(ctx context.Context, cursor string) (*boxsdk.ListFolderResponse, error)
	UploadWhole(ctx context.Context, data []byte, path string, overwrite bool) (*boxsdk.UploadResponse, error)
	UploadSessionStart(ctx context.Context, data []byte) (string, error)
	UploadSessionAppend(ctx context.Context, data []byte, sessionID string, offset int64) error
	UploadSessionFinish(ctx context.Context, data []byte, sessionID string, offset int64, path string, overwrite bool) (*boxsdk.UploadResponse, error)
	DownloadToFile(ctx context.Context, remotePath string, localPath string) (string, error)
	Delete(ctx context.Context, path string) error
}

var _ RemoteClient = (*boxsdk.FilesAPI)(nil)
