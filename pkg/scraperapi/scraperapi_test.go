package scraperapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calmackay/commutecast/pkg/transit"
)

func TestStopDepartures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lothian/stop/36234788" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"stop_code": "36234788",
			"stop_name": "Princes Street",
			"departures": [{"route": "X4", "due_mins": 7, "status": "On time"}],
			"cached": true
		}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	got, err := c.StopDepartures(context.Background(), "36234788")
	if err != nil {
		t.Fatalf("StopDepartures: %v", err)
	}
	if got.StopName != "Princes Street" || !got.Cached {
		t.Fatalf("unexpected response: %+v", got)
	}
	if len(got.Departures) != 1 || got.Departures[0].Route != "X4" || got.Departures[0].Status != transit.StatusOnTime {
		t.Fatalf("unexpected departures: %+v", got.Departures)
	}
	if got.Departures[0].DueMins == nil || *got.Departures[0].DueMins != 7 {
		t.Fatalf("due_mins not decoded: %+v", got.Departures[0])
	}
}

func TestStopDeparturesCarriesServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stop_code": "X", "departures": [], "error": "no departure data found - website structure may have changed"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	got, err := c.StopDepartures(context.Background(), "X")
	if err != nil {
		t.Fatalf("an error payload should not fail the fetch: %v", err)
	}
	if got.Error == "" || len(got.Departures) != 0 {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestHealthAndClearCache(t *testing.T) {
	var cleared bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/health":
			w.Write([]byte(`{"status":"healthy"}`))
		case r.Method == "POST" && r.URL.Path == "/cache/clear":
			cleared = true
			w.Write([]byte(`{"status":"cache cleared"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if err := c.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if !cleared {
		t.Fatal("cache clear never reached the service")
	}
}

func TestStopDeparturesBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if _, err := c.StopDepartures(context.Background(), "X"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
