package boxsdk

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL   = errors.New("sdk: server url missing")
	ErrNoAccessToken = errors.New("sdk: access token missing")

	// files
	ErrFileNotFound = errors.New("sdk: file not found")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// Auth errors
	CodeAuthInvalidCredentials = "E_AUTH_INVALID_CREDENTIALS" // access token is invalid, expired, or malformed

	// File errors
	CodeFileNotFound     = "E_FILE_NOT_FOUND"               // the specified file could not be found
	CodeFileListFailed   = "E_FILE_LIST_OPERATION_FAILED"   // a failure during the operation to list files
	CodeFilePutFailed    = "E_FILE_PUT_OPERATION_FAILED"    // a failure during the operation to upload a file
	CodeFileGetFailed    = "E_FILE_GET_OPERATION_FAILED"    // a failure during the operation to download a file
	CodeFileDeleteFailed = "E_FILE_DELETE_OPERATION_FAILED" // a failure during the operation to delete a file

	// Upload session errors
	CodeSessionNotFound       = "E_SESSION_NOT_FOUND"        // the upload session id is unknown or expired
	CodeSessionOffsetMismatch = "E_SESSION_OFFSET_MISMATCH"  // the append offset does not match the session cursor
)

type SDKError interface {
	error
	ErrorCode() string
	ErrorMessage() string
}

// BaseError provides common error functionality
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *BaseError) ErrorCode() string    { return e.Code }
func (e *BaseError) ErrorMessage() string { return e.Message }

// APIError represents store API errors
type APIError struct {
	BaseError
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		BaseError: BaseError{
			Code:    code,
			Message: message,
		},
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

var _ SDKError = (*APIError)(nil)

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok {
			if err.Code == CodeFileNotFound {
				return fmt.Errorf("%s: %w: %s", operation, ErrFileNotFound, err.Message)
			}
			return fmt.Errorf("%s %w", operation, err)
		}

		return fmt.Errorf("api error: %s %s", operation, resp.Dump())
	}

	return nil
}
