package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
)

// SessionAPI validates opaque session IDs against the membership session
// service.
type SessionAPI struct {
	client  *Client
	baseURL string
	apiKey  string
}

// NewSessionAPI creates a session validation client.
func NewSessionAPI(client *Client, baseURL, apiKey string) *SessionAPI {
	return &SessionAPI{client: client, baseURL: baseURL, apiKey: apiKey}
}

type sessionResponse struct {
	UUID         string `json:"uuid"`
	CreationTime int64  `json:"creationTime"` // epoch milliseconds
	RememberMe   bool   `json:"rememberMe"`
}

// GetSessionData resolves a session ID to its owning user. A NotFound error
// means the session is invalid or expired.
func (s *SessionAPI) GetSessionData(ctx context.Context, sessionID string) (*entities.SessionData, error) {
	if sessionID == "" {
		return nil, errors.InvalidInput("session ID is required")
	}

	url := fmt.Sprintf("%s/sessions/%s", s.baseURL, sessionID)

	var resp sessionResponse
	headers := map[string]string{}
	if s.apiKey != "" {
		headers["X-Api-Key"] = s.apiKey
	}
	if err := s.client.getJSON(ctx, "session-api", url, headers, &resp); err != nil {
		return nil, err
	}
	if resp.UUID == "" {
		return nil, errors.ServiceUnavailable("session-api returned a session without a uuid", nil)
	}

	return &entities.SessionData{
		UUID:         resp.UUID,
		CreationTime: time.UnixMilli(resp.CreationTime).UTC(),
		RememberMe:   resp.RememberMe,
	}, nil
}
