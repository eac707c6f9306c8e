package boxsdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestSDK(t *testing.T, handler http.Handler) *SDK {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sdk, err := New(srv.URL, testToken)
	require.NoError(t, err)
	t.Cleanup(sdk.Close)
	return sdk
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func apiErrorBody(code, message string) map[string]string {
	return map[string]string{"code": code, "error": message}
}

func TestNew_RequiresServerURLAndToken(t *testing.T) {
	_, err := New("", "tok")
	assert.ErrorIs(t, err, ErrNoServerURL)

	_, err = New("http://localhost:8080", "")
	assert.ErrorIs(t, err, ErrNoAccessToken)
}

func TestWhoami(t *testing.T) {
	sdk := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, v1AuthWhoami, r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, &WhoamiResponse{User: "alice"})
	}))

	resp, err := sdk.Whoami(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User)
}

func TestFiles_ListFolderPagination(t *testing.T) {
	sdk := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case v1FilesList:
			var params ListFolderParams
			require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
			assert.Equal(t, "/", params.Path)
			assert.True(t, params.Recursive)
			writeJSON(t, w, http.StatusOK, &ListFolderResponse{
				Entries: []*EntryMetadata{{Tag: EntryTypeFile, Path: "/a.txt", Rev: "r1"}},
				Cursor:  "cursor-1",
				HasMore: true,
			})
		case v1FilesListContinue:
			var params ListFolderContinueParams
			require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
			assert.Equal(t, "cursor-1", params.Cursor)
			writeJSON(t, w, http.StatusOK, &ListFolderResponse{
				Entries: []*EntryMetadata{{Tag: EntryTypeFolder, Path: "/docs"}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	page, err := sdk.Files.ListFolder(ctx, "/", true)
	require.NoError(t, err)
	require.True(t, page.HasMore)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "/a.txt", page.Entries[0].Path)

	page, err = sdk.Files.ListFolderContinue(ctx, page.Cursor)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, EntryTypeFolder, page.Entries[0].Tag)
}

func TestFiles_UploadWhole(t *testing.T) {
	payload := []byte("file contents")
	sdk := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, v1FilesUpload, r.URL.Path)
		assert.Equal(t, "/docs/notes.txt", r.URL.Query().Get("path"))
		assert.Equal(t, "true", r.URL.Query().Get("overwrite"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, body)

		writeJSON(t, w, http.StatusOK, &UploadResponse{
			Path: "/docs/notes.txt",
			Rev:  "r42",
			Size: int64(len(body)),
		})
	}))

	resp, err := sdk.Files.UploadWhole(context.Background(), payload, "docs/notes.txt", true)
	require.NoError(t, err)
	assert.Equal(t, "r42", resp.Rev)
	assert.Equal(t, int64(len(payload)), resp.Size)
}

func TestFiles_UploadSessionFlow(t *testing.T) {
	var buf []byte
	sdk := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		checkOffset := func() bool {
			offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
			require.NoError(t, err)
			if offset != int64(len(buf)) {
				writeJSON(t, w, http.StatusConflict,
					apiErrorBody(CodeSessionOffsetMismatch, "offset mismatch"))
				return false
			}
			return true
		}

		switch r.URL.Path {
		case v1FilesSessionStart:
			buf = body
			writeJSON(t, w, http.StatusOK, &SessionStartResponse{SessionID: "sess-1"})
		case v1FilesSessionAppend:
			assert.Equal(t, "sess-1", r.URL.Query().Get("sessionId"))
			if !checkOffset() {
				return
			}
			buf = append(buf, body...)
			w.WriteHeader(http.StatusOK)
		case v1FilesSessionFinish:
			assert.Equal(t, "sess-1", r.URL.Query().Get("sessionId"))
			assert.Equal(t, "/big.bin", r.URL.Query().Get("path"))
			if !checkOffset() {
				return
			}
			buf = append(buf, body...)
			writeJSON(t, w, http.StatusOK, &UploadResponse{Path: "/big.bin", Rev: "r1", Size: int64(len(buf))})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	sessionID, err := sdk.Files.UploadSessionStart(ctx, []byte("aaaa"))
	require.NoError(t, err)
	require.Equal(t, "sess-1", sessionID)

	require.NoError(t, sdk.Files.UploadSessionAppend(ctx, []byte("bbbb"), sessionID, 4))

	resp, err := sdk.Files.UploadSessionFinish(ctx, []byte("cc"), sessionID, 8, "big.bin", true)
	require.NoError(t, err)
	assert.Equal(t, int64(10), resp.Size)
	assert.Equal(t, []byte("aaaabbbbcc"), buf)
}

func TestFiles_UploadSessionAppendOffsetMismatch(t *testing.T) {
	sdk := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict,
			apiErrorBody(CodeSessionOffsetMismatch, "expected offset 0"))
	}))

	err := sdk.Files.UploadSessionAppend(context.Background(), []byte("x"), "sess-1", 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), CodeSessionOffsetMismatch)
}

func TestFiles_DownloadToFile(t *testing.T) {
	sdk := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, v1FilesDownload, r.URL.Path)
		assert.Equal(t, "/docs/readme.txt", r.URL.Query().Get("path"))
		w.Header().Set("ETag", `"r7"`)
		_, _ = w.Write([]byte("downloaded bytes"))
	}))

	localPath := filepath.Join(t.TempDir(), "nested", "readme.txt")
	rev, err := sdk.Files.DownloadToFile(context.Background(), "docs/readme.txt", localPath)
	require.NoError(t, err)
	assert.Equal(t, "r7", rev)

	content, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "downloaded bytes", string(content))
}

func TestFiles_DeleteNotFound(t *testing.T) {
	sdk := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, v1FilesDelete, r.URL.Path)
		writeJSON(t, w, http.StatusNotFound, apiErrorBody(CodeFileNotFound, "no such file"))
	}))

	err := sdk.Files.Delete(context.Background(), "gone.txt")
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestRemotePath(t *testing.T) {
	assert.Equal(t, "/a/b.txt", remotePath("a/b.txt"))
	assert.Equal(t, "/a/b.txt", remotePath("/a/b.txt"))
}
