// Package metricsource fetches raw analytics report payloads from the
// upstream reporting service. Payloads are relayed as opaque JSON; parsing
// into metrics happens downstream in the trend calculator.
package metricsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves one report for the property. A single attempt is made;
// callers decide whether a failure is fatal or a stale cached copy suffices.
func (c *Client) Fetch(ctx context.Context, propertyID, dataType, period string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/reports?%s", c.baseURL, url.Values{
		"propertyId": {propertyID},
		"dataType":   {dataType},
		"period":     {period},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("report response for %s/%s is not valid JSON", propertyID, dataType)
	}

	return json.RawMessage(body), nil
}
