package upstream

import (
	"context"
	"fmt"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
)

// ProfileAPI fetches basic profile data (email, names) for a user.
type ProfileAPI struct {
	client  *Client
	baseURL string
}

// NewProfileAPI creates a basic-profile client.
func NewProfileAPI(client *Client, baseURL string) *ProfileAPI {
	return &ProfileAPI{client: client, baseURL: baseURL}
}

// GetUserData returns the user's basic profile by canonical UUID.
func (p *ProfileAPI) GetUserData(ctx context.Context, uuid string) (*entities.BasicUserInfo, error) {
	if uuid == "" {
		return nil, errors.InvalidInput("user uuid is required")
	}

	url := fmt.Sprintf("%s/users/%s/profile", p.baseURL, uuid)

	var info entities.BasicUserInfo
	if err := p.client.getJSON(ctx, "user-profile-api", url, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
