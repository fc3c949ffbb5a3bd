package transportapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const livePayload = `{"departures":{"26":[{"line_name":"26","aimed_departure_time":"08:20"}]}}`

func TestLiveDepartures(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(livePayload))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "myid", "mykey")
	body, err := c.LiveDepartures(context.Background(), "36234788")
	if err != nil {
		t.Fatalf("LiveDepartures: %v", err)
	}
	if string(body) != livePayload {
		t.Fatalf("unexpected body %q", body)
	}
	if !strings.HasSuffix(gotPath, "/36234788/live.json") {
		t.Errorf("unexpected path %q", gotPath)
	}
	want := map[string]string{
		"app_id":    "myid",
		"app_key":   "mykey",
		"group":     "route",
		"nextbuses": "yes",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query param %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestLiveDeparturesErrorStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidCredentials},
		{http.StatusForbidden, ErrQuotaExceeded},
	}
	for _, c := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		client := NewClient(ts.URL, "id", "key")
		_, err := client.LiveDepartures(context.Background(), "36234788")
		ts.Close()
		if !errors.Is(err, c.want) {
			t.Errorf("status %d: got %v, want %v", c.status, err, c.want)
		}
	}
}

func TestLiveDeparturesUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "id", "key")
	_, err := c.LiveDepartures(context.Background(), "36234788")
	if err == nil || errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected generic error for 404, got %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	cases := []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusForbidden, false}, // key accepted, quota spent
		{http.StatusUnauthorized, true},
	}
	for _, c := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			w.Write([]byte(`{}`))
		}))
		client := NewClient(ts.URL, "id", "key")
		err := client.ValidateCredentials(context.Background(), "36234788")
		ts.Close()
		if (err != nil) != c.wantErr {
			t.Errorf("status %d: got err %v, wantErr %v", c.status, err, c.wantErr)
		}
	}
}
