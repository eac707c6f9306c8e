package boxsdk

import (
	"time"
)

const (
	// EntryTypeFile tags a listing entry as a regular file.
	EntryTypeFile = "file"
	// EntryTypeFolder tags a listing entry as a folder.
	EntryTypeFolder = "folder"
)

// EntryMetadata is one entry of a folder listing. Tag discriminates between
// file and folder entries; the file-only fields are zero for folders.
type EntryMetadata struct {
	Tag            string    `json:".tag"`
	Path           string    `json:"path"`
	Rev            string    `json:"rev,omitempty"`
	Size           int64     `json:"size,omitempty"`
	ClientModified time.Time `json:"clientModified,omitempty"`
	ServerModified time.Time `json:"serverModified,omitempty"`
	ContentHash    string    `json:"contentHash,omitempty"`
}

// ===================================================================================================

// ListFolderParams represents the parameters for a folder listing
type ListFolderParams struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

// ListFolderContinueParams represents the parameters for continuing a paginated listing
type ListFolderContinueParams struct {
	Cursor string `json:"cursor"`
}

// ListFolderResponse represents one page of a folder listing
type ListFolderResponse struct {
	Entries []*EntryMetadata `json:"entries"`
	Cursor  string           `json:"cursor"`
	HasMore bool             `json:"hasMore"`
}

// ===================================================================================================

// UploadResponse represents the response from a file upload or session finish
type UploadResponse struct {
	Path string `json:"path"`
	Rev  string `json:"rev"`
	Size int64  `json:"size"`
}

// SessionStartResponse represents the response from an upload session start
type SessionStartResponse struct {
	SessionID string `json:"sessionId"`
}

// ===================================================================================================

// DeleteResponse represents the response from a file delete
type DeleteResponse struct {
	Path string `json:"path"`
}

// WhoamiResponse represents the response from the token check endpoint
type WhoamiResponse struct {
	User string `json:"user"`
}
