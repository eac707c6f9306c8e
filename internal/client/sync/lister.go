package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openmined/syncbox/internal/boxsdk"
)

// RemoteEntry is one entry of the remote listing: *RemoteFile or *RemoteFolder,
// dispatched by type switch.
type RemoteEntry interface {
	isRemoteEntry()
}

type RemoteFile struct {
	Path             string
	Rev              string
	Size             int64
	ClientModifiedAt time.Time
	ServerModifiedAt time.Time
	ContentHash      string
}

type RemoteFolder struct {
	Path string
}

func (*RemoteFile) isRemoteEntry()   {}
func (*RemoteFolder) isRemoteEntry() {}

// RemoteLister enumerates the full remote tree as a single logical sequence,
// transparently following pagination cursors. A page failure aborts the whole
// listing; partial results are never reused.
type RemoteLister struct {
	remote RemoteClient
}

func NewRemoteLister(remote RemoteClient) *RemoteLister {
	return &RemoteLister{remote: remote}
}

// ListAll invokes fn for every remote entry in listing order. The first page
// error or fn error stops the iteration and is returned.
func (l *RemoteLister) ListAll(ctx context.Context, fn func(RemoteEntry) error) error {
	resp, err := l.remote.ListFolder(ctx, "", true)
	for {
		if err != nil {
			return fmt.Errorf("list folder: %w", err)
		}

		for _, md := range resp.Entries {
			entry, err := entryFromMetadata(md)
			if err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}

		if !resp.HasMore {
			return nil
		}
		resp, err = l.remote.ListFolderContinue(ctx, resp.Cursor)
	}
}

func entryFromMetadata(md *boxsdk.EntryMetadata) (RemoteEntry, error) {
	// store paths are absolute; the sync namespace is root-relative
	path := strings.TrimPrefix(md.Path, "/")

	switch md.Tag {
	case boxsdk.EntryTypeFile:
		return &RemoteFile{
			Path:             path,
			Rev:              md.Rev,
			Size:             md.Size,
			ClientModifiedAt: md.ClientModified,
			ServerModifiedAt: md.ServerModified,
			ContentHash:      md.ContentHash,
		}, nil
	case boxsdk.EntryTypeFolder:
		return &RemoteFolder{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown entry type %q for %q", md.Tag, md.Path)
	}
}
