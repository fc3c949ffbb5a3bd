package scraper

import (
	"testing"
	"time"

	"github.com/calmackay/commutecast/pkg/transit"
)

func newTestCache(ttl time.Duration) (*Cache, *time.Time) {
	now := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	c := NewCache(ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func sample(stop string) *transit.StopDepartures {
	return &transit.StopDepartures{
		StopCode: stop,
		Departures: []transit.Departure{
			{Route: "X4", DueMins: transit.IntPtr(7), Status: transit.StatusOnTime},
		},
	}
}

func TestCacheHitWithinTTL(t *testing.T) {
	c, _ := newTestCache(90 * time.Second)
	c.Set("36234788", sample("36234788"))

	got := c.Get("36234788")
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if !got.Cached {
		t.Fatal("cache hit not flagged as cache-derived")
	}
	if got.StopCode != "36234788" || len(got.Departures) != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c, now := newTestCache(90 * time.Second)
	c.Set("36234788", sample("36234788"))

	*now = now.Add(91 * time.Second)
	if got := c.Get("36234788"); got != nil {
		t.Fatalf("expected expired entry to be absent, got %+v", got)
	}
}

func TestCacheReturnsCopy(t *testing.T) {
	c, _ := newTestCache(90 * time.Second)
	stored := sample("36234788")
	c.Set("36234788", stored)

	first := c.Get("36234788")
	first.Departures[0].Route = "mutated"
	first.StopName = "mutated"

	second := c.Get("36234788")
	if second.Departures[0].Route != "X4" || second.StopName != "" {
		t.Fatal("cache returned its live stored object")
	}
	if stored.Cached {
		t.Fatal("stored entry mutated by hit flagging")
	}
}

func TestCacheClear(t *testing.T) {
	c, _ := newTestCache(90 * time.Second)
	c.Set("A", sample("A"))
	c.Set("B", sample("B"))
	c.Clear()
	if c.Get("A") != nil || c.Get("B") != nil {
		t.Fatal("entries survived Clear")
	}
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(90 * time.Second)
	if got := c.Get("nope"); got != nil {
		t.Fatalf("expected miss, got %+v", got)
	}
}
