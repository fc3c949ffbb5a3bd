// Package hass is a minimal Home Assistant REST client: it reads
// calendar entity state for commute-context decisions and posts
// notifications with the finished briefing.
package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const DefaultTimeout = 15 * time.Second

// CalendarEvent is the current state of a calendar entity. Message is
// the title of the active event, empty when the calendar is idle.
type CalendarEvent struct {
	State   string
	Message string
}

// Active reports whether an event is in progress right now.
func (e CalendarEvent) Active() bool {
	return e.State == "on"
}

type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

func NewClient(baseURL, token string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 2
	retryClient.HTTPClient.Timeout = DefaultTimeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    retryClient,
	}
}

// CalendarState reads a calendar entity and returns its state plus the
// active event title.
func (c *Client) CalendarState(ctx context.Context, entityID string) (CalendarEvent, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/states/"+entityID, nil)
	if err != nil {
		return CalendarEvent{}, err
	}
	return CalendarEvent{
		State:   gjson.GetBytes(body, "state").String(),
		Message: gjson.GetBytes(body, "attributes.message").String(),
	}, nil
}

// NumericState reads an entity whose state is a number, such as a
// travel-time sensor. The second return is false when the entity is
// missing, unavailable, or not numeric.
func (c *Client) NumericState(ctx context.Context, entityID string) (float64, bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/states/"+entityID, nil)
	if err != nil {
		return 0, false, err
	}
	state := gjson.GetBytes(body, "state").String()
	f, err := strconv.ParseFloat(state, 64)
	if err != nil {
		// "unavailable", "unknown" or a missing entity all land here.
		return 0, false, nil
	}
	return f, true, nil
}

// Notify posts a briefing to a notify service, e.g. "mobile_app_phone".
// The data block carries the push sound and a refresh action so the
// notification can trigger a manual fetch from the phone.
func (c *Client) Notify(ctx context.Context, service, title, message string) error {
	payload, err := json.Marshal(map[string]any{
		"title":   title,
		"message": message,
		"data": map[string]any{
			"push": map[string]any{
				"sound": map[string]any{"name": "default", "critical": 0},
			},
			"actions": []map[string]string{
				{"action": "COMMUTE_REFRESH", "title": "Refresh"},
			},
		},
	})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/api/services/notify/"+service, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hass: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hass: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("hass: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return body, nil
}
