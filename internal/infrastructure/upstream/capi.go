package upstream

import (
	"context"
	"fmt"
	"strings"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
)

// ContentAPI fetches article annotations from the content tagging service.
type ContentAPI struct {
	client  *Client
	baseURL string
	apiKey  string
}

// NewContentAPI creates a content tagging client.
func NewContentAPI(client *Client, baseURL, apiKey string) *ContentAPI {
	return &ContentAPI{client: client, baseURL: baseURL, apiKey: apiKey}
}

type capiAnnotation struct {
	Type      string `json:"type"`
	Label     string `json:"label"`
	Predicate string `json:"predicate"`
}

type capiResponse struct {
	Annotations []capiAnnotation `json:"annotations"`
}

// GetTags returns the annotations attached to an article. The hasAuthor
// predicate marks a contributor as the primary author.
func (a *ContentAPI) GetTags(ctx context.Context, articleID string) ([]entities.Annotation, error) {
	url := fmt.Sprintf("%s/%s/annotations", a.baseURL, articleID)

	var resp capiResponse
	headers := map[string]string{}
	if a.apiKey != "" {
		headers["X-Api-Key"] = a.apiKey
	}
	if err := a.client.getJSON(ctx, "content-api", url, headers, &resp); err != nil {
		return nil, err
	}

	annotations := make([]entities.Annotation, 0, len(resp.Annotations))
	for _, ann := range resp.Annotations {
		annotations = append(annotations, entities.Annotation{
			Type:          ann.Type,
			Label:         ann.Label,
			PrimaryAuthor: strings.HasSuffix(ann.Predicate, "hasAuthor"),
		})
	}
	return annotations, nil
}
