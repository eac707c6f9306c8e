package sync

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/openmined/syncbox/internal/boxsdk"
	"github.com/openmined/syncbox/internal/utils"
)

// fakeRemote is an in-memory store implementing RemoteClient. It mimics the
// SDK's path convention: listing entries carry store-absolute paths, all
// operation arguments are root-relative.
type fakeRemote struct {
	mu       sync.Mutex
	files    map[string]*fakeBlob
	folders  map[string]bool
	sessions map[string][]byte
	pageSize int
	revSeq   int
	sessSeq  int

	continueErr error

	uploads   int
	downloads int
	deletes   int
	listCalls int
}

type fakeBlob struct {
	data []byte
	rev  string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		files:    make(map[string]*fakeBlob),
		folders:  make(map[string]bool),
		sessions: make(map[string][]byte),
		pageSize: 100,
	}
}

func (f *fakeRemote) nextRev() string {
	f.revSeq++
	return fmt.Sprintf("r%d", f.revSeq)
}

// putBlob seeds a remote file and returns its revision.
func (f *fakeRemote) putBlob(relPath, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev := f.nextRev()
	f.files[relPath] = &fakeBlob{data: []byte(content), rev: rev}
	return rev
}

func (f *fakeRemote) blob(relPath string) (*fakeBlob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[relPath]
	return b, ok
}

func (f *fakeRemote) addFolder(relPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders[relPath] = true
}

func (f *fakeRemote) removeBlob(relPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, relPath)
}

// entries builds the full listing: explicit folders, parents of files, then
// the files themselves, in sorted order.
func (f *fakeRemote) entries() []*boxsdk.EntryMetadata {
	folders := make(map[string]bool)
	for path := range f.folders {
		folders[path] = true
	}
	for path := range f.files {
		dir := path
		for {
			idx := strings.LastIndex(dir, "/")
			if idx < 0 {
				break
			}
			dir = dir[:idx]
			folders[dir] = true
		}
	}

	var all []*boxsdk.EntryMetadata
	for path := range folders {
		all = append(all, &boxsdk.EntryMetadata{
			Tag:  boxsdk.EntryTypeFolder,
			Path: "/" + path,
		})
	}
	for path, blob := range f.files {
		all = append(all, &boxsdk.EntryMetadata{
			Tag:  boxsdk.EntryTypeFile,
			Path: "/" + path,
			Rev:  blob.rev,
			Size: int64(len(blob.data)),
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all
}

func (f *fakeRemote) page(start int) *boxsdk.ListFolderResponse {
	all := f.entries()
	end := min(start+f.pageSize, len(all))
	return &boxsdk.ListFolderResponse{
		Entries: all[start:end],
		Cursor:  strconv.Itoa(end),
		HasMore: end < len(all),
	}
}

func (f *fakeRemote) ListFolder(_ context.Context, _ string, _ bool) (*boxsdk.ListFolderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.page(0), nil
}

func (f *fakeRemote) ListFolderContinue(_ context.Context, cursor string) (*boxsdk.ListFolderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.continueErr != nil {
		return nil, f.continueErr
	}
	start, err := strconv.Atoi(cursor)
	if err != nil {
		return nil, fmt.Errorf("bad cursor %q", cursor)
	}
	return f.page(start), nil
}

func (f *fakeRemote) UploadWhole(_ context.Context, data []byte, path string, _ bool) (*boxsdk.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	rev := f.nextRev()
	f.files[path] = &fakeBlob{data: append([]byte(nil), data...), rev: rev}
	return &boxsdk.UploadResponse{Path: "/" + path, Rev: rev, Size: int64(len(data))}, nil
}

func (f *fakeRemote) UploadSessionStart(_ context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessSeq++
	id := fmt.Sprintf("sess-%d", f.sessSeq)
	f.sessions[id] = append([]byte(nil), data...)
	return id, nil
}

func (f *fakeRemote) UploadSessionAppend(_ context.Context, data []byte, sessionID string, offset int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf, ok := f.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown session %q", sessionID)
	}
	if offset != int64(len(buf)) {
		return fmt.Errorf("offset mismatch: got %d, want %d", offset, len(buf))
	}
	f.sessions[sessionID] = append(buf, data...)
	return nil
}

func (f *fakeRemote) UploadSessionFinish(_ context.Context, data []byte, sessionID string, offset int64, path string, _ bool) (*boxsdk.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session %q", sessionID)
	}
	if offset != int64(len(buf)) {
		return nil, fmt.Errorf("offset mismatch: got %d, want %d", offset, len(buf))
	}
	buf = append(buf, data...)
	delete(f.sessions, sessionID)

	f.uploads++
	rev := f.nextRev()
	f.files[path] = &fakeBlob{data: buf, rev: rev}
	return &boxsdk.UploadResponse{Path: "/" + path, Rev: rev, Size: int64(len(buf))}, nil
}

func (f *fakeRemote) DownloadToFile(_ context.Context, remotePath, localPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.files[remotePath]
	if !ok {
		return "", fmt.Errorf("files download: %w", boxsdk.ErrFileNotFound)
	}
	if err := utils.EnsureParent(localPath); err != nil {
		return "", err
	}
	if err := os.WriteFile(localPath, blob.data, 0o644); err != nil {
		return "", err
	}
	f.downloads++
	return blob.rev, nil
}

func (f *fakeRemote) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("files delete: %w", boxsdk.ErrFileNotFound)
	}
	delete(f.files, path)
	f.deletes++
	return nil
}

var _ RemoteClient = (*fakeRemote)(nil)
