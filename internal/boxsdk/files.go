package boxsdk

import (
	"context"
	"strconv"
	"strings"

	"github.com/imroc/req/v3"
	"github.com/openmined/syncbox/internal/utils"
)

const (
	v1FilesList          = "/api/v1/files/list"
	v1FilesListContinue  = "/api/v1/files/list/continue"
	v1FilesUpload        = "/api/v1/files/upload"
	v1FilesSessionStart  = "/api/v1/files/upload/session/start"
	v1FilesSessionAppend = "/api/v1/files/upload/session/append"
	v1FilesSessionFinish = "/api/v1/files/upload/session/finish"
	v1FilesDownload      = "/api/v1/files/download"
	v1FilesDelete        = "/api/v1/files/delete"
)

// FilesAPI exposes the file operations of the store: paginated listing,
// whole-file and session (chunked) uploads, streamed downloads and deletes.
type FilesAPI struct {
	client *req.Client
}

func newFilesAPI(client *req.Client) *FilesAPI {
	return &FilesAPI{
		client: client,
	}
}

// ListFolder starts a folder listing. The response carries a continuation
// cursor; while HasMore is set the caller must follow it with ListFolderContinue.
func (f *FilesAPI) ListFolder(ctx context.Context, path string, recursive bool) (apiResp *ListFolderResponse, err error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(&ListFolderParams{
			Path:      remotePath(path),
			Recursive: recursive,
		}).
		SetSuccessResult(&apiResp).
		Post(v1FilesList)

	if err := handleAPIError(resp, err, "files list"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// ListFolderContinue fetches the next page of a listing started with ListFolder.
func (f *FilesAPI) ListFolderContinue(ctx context.Context, cursor string) (apiResp *ListFolderResponse, err error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(&ListFolderContinueParams{Cursor: cursor}).
		SetSuccessResult(&apiResp).
		Post(v1FilesListContinue)

	if err := handleAPIError(resp, err, "files list continue"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// UploadWhole uploads a file in a single request and returns its new revision.
func (f *FilesAPI) UploadWhole(ctx context.Context, data []byte, path string, overwrite bool) (*UploadResponse, error) {
	var apiResp *UploadResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("path", remotePath(path)).
		SetQueryParam("overwrite", strconv.FormatBool(overwrite)).
		SetRetryCount(0).
		SetContentType("application/octet-stream").
		SetBodyBytes(data).
		SetSuccessResult(&apiResp).
		Put(v1FilesUpload)

	if err := handleAPIError(resp, err, "files upload"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// UploadSessionStart opens a chunked upload session with the first chunk and
// returns the session id.
func (f *FilesAPI) UploadSessionStart(ctx context.Context, data []byte) (string, error) {
	var apiResp *SessionStartResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetContentType("application/octet-stream").
		SetBodyBytes(data).
		SetSuccessResult(&apiResp).
		Post(v1FilesSessionStart)

	if err := handleAPIError(resp, err, "files session start"); err != nil {
		return "", err
	}

	return apiResp.SessionID, nil
}

// UploadSessionAppend appends one chunk to an open session. Offset is the
// total number of bytes already sent and must increase monotonically.
func (f *FilesAPI) UploadSessionAppend(ctx context.Context, data []byte, sessionID string, offset int64) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("sessionId", sessionID).
		SetQueryParam("offset", strconv.FormatInt(offset, 10)).
		SetRetryCount(0).
		SetContentType("application/octet-stream").
		SetBodyBytes(data).
		Post(v1FilesSessionAppend)

	return handleAPIError(resp, err, "files session append")
}

// UploadSessionFinish commits a session with the final (possibly short) chunk
// and the destination path, and returns the committed revision.
func (f *FilesAPI) UploadSessionFinish(ctx context.Context, data []byte, sessionID string, offset int64, path string, overwrite bool) (*UploadResponse, error) {
	var apiResp *UploadResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("sessionId", sessionID).
		SetQueryParam("offset", strconv.FormatInt(offset, 10)).
		SetQueryParam("path", remotePath(path)).
		SetQueryParam("overwrite", strconv.FormatBool(overwrite)).
		SetRetryCount(0).
		SetContentType("application/octet-stream").
		SetBodyBytes(data).
		SetSuccessResult(&apiResp).
		Post(v1FilesSessionFinish)

	if err := handleAPIError(resp, err, "files session finish"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// DownloadToFile streams a remote file to localPath and returns its revision.
func (f *FilesAPI) DownloadToFile(ctx context.Context, remote, localPath string) (string, error) {
	if err := utils.EnsureParent(localPath); err != nil {
		return "", err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("path", remotePath(remote)).
		SetOutputFile(localPath).
		Get(v1FilesDownload)

	if err := handleAPIError(resp, err, "files download"); err != nil {
		return "", err
	}

	return strings.Trim(resp.Header.Get("ETag"), "\""), nil
}

// Delete removes a remote file. A missing file surfaces as ErrFileNotFound.
func (f *FilesAPI) Delete(ctx context.Context, path string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"path": remotePath(path)}).
		Post(v1FilesDelete)

	return handleAPIError(resp, err, "files delete")
}

// remotePath maps a root-relative slash path to the store's absolute form.
func remotePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
