// Package upstream holds the thin HTTP clients for the services this BFF
// fronts: content tagging, session validation, user profile, identity
// mapping, legacy site mapping and the Livefyre comment platform. Clients
// classify failures into the shared error taxonomy and carry no caching.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
)

// Client is the shared HTTP transport for all upstream calls. One timeout
// policy applies everywhere; a timed-out call counts as a generic upstream
// error, never as "not found".
type Client struct {
	http   *http.Client
	logger *logging.ChanneledLogger
}

// NewClient creates the shared upstream transport.
func NewClient(timeout time.Duration, logger *logging.ChanneledLogger) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// getJSON performs a GET and decodes the body into out. Status 404 maps to
// KindNotFound, any other non-2xx or transport failure to
// KindServiceUnavailable.
func (c *Client) getJSON(ctx context.Context, service, url string, headers map[string]string, out any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.KindInvalidInput, "invalid upstream request", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Upstream().Error("Upstream call failed", "service", service, "error", err.Error(), "duration", time.Since(start))
		return errors.ServiceUnavailable(service+" unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Upstream().Debug("Upstream returned not found", "service", service, "duration", time.Since(start))
		return errors.NotFoundf("%s: not found", service)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Upstream().Error("Upstream returned error status", "service", service, "status", resp.StatusCode, "duration", time.Since(start))
		return errors.ServiceUnavailable(fmt.Sprintf("%s returned status %d: %s", service, resp.StatusCode, string(body)), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.logger.Upstream().Error("Upstream response decode failed", "service", service, "error", err.Error())
			return errors.ServiceUnavailable(service+" returned malformed response", err)
		}
	}

	c.logger.Upstream().Debug("Upstream call completed", "service", service, "status", resp.StatusCode, "duration", time.Since(start))
	return nil
}

// head performs a HEAD-like existence probe via GET, discarding the body.
// Returns true on 2xx, false on 404, error otherwise.
func (c *Client) exists(ctx context.Context, service, url string) (bool, error) {
	err := c.getJSON(ctx, service, url, nil, nil)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}
