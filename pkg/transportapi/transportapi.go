// Package transportapi is a thin client for the TransportAPI live bus
// departures endpoint, the metered primary source. Every successful
// call here counts against the daily provider quota, so callers are
// expected to clear admission with the quota ledger first.
package transportapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultBaseURL = "https://transportapi.com/v3/uk/bus/stop"
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrInvalidCredentials is returned on HTTP 401: the app id/key pair
	// was rejected outright.
	ErrInvalidCredentials = errors.New("transportapi: invalid app_id/app_key")
	// ErrQuotaExceeded is returned on HTTP 403: the provider-side daily
	// allowance is spent, distinct from our own ledger saying no.
	ErrQuotaExceeded = errors.New("transportapi: provider quota exceeded")
)

type Client struct {
	baseURL string
	appID   string
	appKey  string
	http    *retryablehttp.Client
}

func NewClient(baseURL, appID, appKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 2
	retryClient.HTTPClient.Timeout = DefaultTimeout

	return &Client{
		baseURL: baseURL,
		appID:   appID,
		appKey:  appKey,
		http:    retryClient,
	}
}

// LiveDepartures fetches the route-grouped live departure board for one
// stop and returns the raw JSON body. nextbuses=yes asks the provider
// for realtime estimates rather than timetable entries.
func (c *Client) LiveDepartures(ctx context.Context, stopCode string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/live.json", c.baseURL, url.PathEscape(stopCode))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("app_id", c.appID)
	q.Set("app_key", c.appKey)
	q.Set("group", "route")
	q.Set("nextbuses", "yes")
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transportapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transportapi: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case http.StatusForbidden:
		return nil, ErrQuotaExceeded
	}
	return nil, fmt.Errorf("transportapi: unexpected status %d", resp.StatusCode)
}

// ValidateCredentials spends one metered call to check the configured
// key pair. A quota-exceeded answer still proves the credentials are
// accepted, so it reports success.
func (c *Client) ValidateCredentials(ctx context.Context, stopCode string) error {
	_, err := c.LiveDepartures(ctx, stopCode)
	if errors.Is(err, ErrQuotaExceeded) {
		return nil
	}
	return err
}
