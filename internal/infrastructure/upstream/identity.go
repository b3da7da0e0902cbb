package upstream

import (
	"context"
	"fmt"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
)

// IdentityAPI maps between canonical UUIDs and legacy numeric user IDs.
type IdentityAPI struct {
	client  *Client
	baseURL string
}

// NewIdentityAPI creates an identity-mapping client.
func NewIdentityAPI(client *Client, baseURL string) *IdentityAPI {
	return &IdentityAPI{client: client, baseURL: baseURL}
}

type identityResponse struct {
	UUID          string `json:"id"`
	DeprecatedIDs struct {
		ERightsID string `json:"erightsId"`
	} `json:"deprecatedIds"`
}

// UserMapping pairs a canonical UUID with its legacy ID, when one exists.
type UserMapping struct {
	UUID      string
	ERightsID string
}

// GetUserMapping resolves either kind of identifier to the full mapping.
// ERightsID is empty when the user never had a legacy account.
func (i *IdentityAPI) GetUserMapping(ctx context.Context, id string) (*UserMapping, error) {
	if id == "" {
		return nil, errors.InvalidInput("user ID is required")
	}

	url := fmt.Sprintf("%s/user/id/%s", i.baseURL, id)

	var resp identityResponse
	if err := i.client.getJSON(ctx, "identity-api", url, nil, &resp); err != nil {
		return nil, err
	}
	if resp.UUID == "" {
		return nil, errors.NotFoundf("identity-api: no mapping for %s", id)
	}

	return &UserMapping{
		UUID:      resp.UUID,
		ERightsID: resp.DeprecatedIDs.ERightsID,
	}, nil
}
