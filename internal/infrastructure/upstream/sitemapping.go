package upstream

import (
	"context"
	"fmt"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
)

// SiteMapper resolves an article to its comment-platform site via the
// legacy article-to-site mapping service. An article the service does not
// know at all falls back to the default site when one is configured.
type SiteMapper struct {
	client        *Client
	baseURL       string
	defaultSiteID string
}

// NewSiteMapper creates a legacy site-mapping client.
func NewSiteMapper(client *Client, baseURL, defaultSiteID string) *SiteMapper {
	return &SiteMapper{client: client, baseURL: baseURL, defaultSiteID: defaultSiteID}
}

type siteMappingResponse struct {
	SiteID         string `json:"siteId"`
	Classification string `json:"classification"`
}

// GetSiteID returns the comment-platform site for an article. An article
// the mapping service classifies as unclassified is a terminal dead-end,
// distinct from a generic failure: callers must not retry it.
func (m *SiteMapper) GetSiteID(ctx context.Context, articleID string) (string, error) {
	if articleID == "" {
		return "", errors.InvalidInput("article ID is required")
	}

	url := fmt.Sprintf("%s/site/%s", m.baseURL, articleID)

	var resp siteMappingResponse
	if err := m.client.getJSON(ctx, "site-mapping", url, nil, &resp); err != nil {
		if errors.IsNotFound(err) && m.defaultSiteID != "" {
			return m.defaultSiteID, nil
		}
		return "", err
	}
	if resp.Classification == "unclassified" || resp.SiteID == "" {
		return "", errors.Unclassified(fmt.Sprintf("article %s has no site classification", articleID))
	}

	return resp.SiteID, nil
}
