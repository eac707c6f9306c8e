package boxsdk

import (
	"context"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/syncbox/internal/version"
)

const v1AuthWhoami = "/api/v1/auth/whoami"

// SDK is the client for the SyncBox object store API
type SDK struct {
	client  *req.Client
	baseURL string
	Files   *FilesAPI
}

// New creates a new store client. It fails fast on a missing server url or
// access token; token validity is only known after Whoami.
func New(baseURL string, accessToken string) (*SDK, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}
	if accessToken == "" {
		return nil, ErrNoAccessToken
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetCommonBearerAuthToken(accessToken).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1*time.Second).
		SetCommonErrorResult(&APIError{}).
		SetUserAgent("SyncBox/"+version.Version).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &SDK{
		client:  client,
		baseURL: baseURL,
		Files:   newFilesAPI(client),
	}, nil
}

// Whoami validates the access token against the server and returns the
// authenticated user.
func (s *SDK) Whoami(ctx context.Context) (apiResp *WhoamiResponse, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&apiResp).
		Get(v1AuthWhoami)

	if err := handleAPIError(resp, err, "auth whoami"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Close terminates idle connections
func (s *SDK) Close() {
	s.client.CloseIdleConnections()
}
