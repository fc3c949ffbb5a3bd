// Package scraperapi talks to the commutecast scraper service, the
// unmetered fallback source. The generous timeout covers a cold
// browser launch on the service side.
package scraperapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/calmackay/commutecast/pkg/transit"
)

const (
	DefaultBaseURL = "http://localhost:8765"
	DefaultTimeout = 60 * time.Second
)

type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 1
	retryClient.HTTPClient.Timeout = DefaultTimeout

	return &Client{baseURL: baseURL, http: retryClient}
}

// StopDepartures fetches scraped departures for one stop. A response
// with a non-empty Error field is still a successful fetch; the caller
// decides what an empty board means.
func (c *Client) StopDepartures(ctx context.Context, stopCode string) (*transit.StopDepartures, error) {
	endpoint := fmt.Sprintf("%s/lothian/stop/%s", c.baseURL, url.PathEscape(stopCode))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var sd transit.StopDepartures
	if err := json.Unmarshal(body, &sd); err != nil {
		return nil, fmt.Errorf("scraperapi: decode response: %w", err)
	}
	return &sd, nil
}

// Health reports whether the scraper service is up.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, c.baseURL+"/health")
	return err
}

// ClearCache asks the service to drop its departure cache.
func (c *Client) ClearCache(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cache/clear", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scraperapi: request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scraperapi: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraperapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scraperapi: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraperapi: unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
