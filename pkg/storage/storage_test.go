package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/calmackay/commutecast/pkg/quota"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "commutecast.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCallLedger(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := db.RecordCall("2024-03-12", quota.Automatic, at); err != nil {
			t.Fatalf("record auto call: %v", err)
		}
	}
	if err := db.RecordCall("2024-03-12", quota.Manual, at); err != nil {
		t.Fatalf("record manual call: %v", err)
	}
	// An automatic call with an empty payload counts in the total only.
	if err := db.RecordCall("2024-03-12", quota.AutomaticEmpty, at); err != nil {
		t.Fatalf("record empty auto call: %v", err)
	}
	if err := db.RecordCall("2024-03-13", quota.Automatic, at.Add(24*time.Hour)); err != nil {
		t.Fatalf("record next-day call: %v", err)
	}

	total, auto, err := db.CallsForDay("2024-03-12")
	if err != nil {
		t.Fatalf("calls for day: %v", err)
	}
	if total != 5 || auto != 3 {
		t.Fatalf("expected 5 total / 3 auto, got %d / %d", total, auto)
	}

	total, auto, err = db.CallsForDay("2024-03-14")
	if err != nil {
		t.Fatalf("calls for empty day: %v", err)
	}
	if total != 0 || auto != 0 {
		t.Fatalf("expected empty day, got %d / %d", total, auto)
	}
}

func TestLedgerSatisfiesQuotaStore(t *testing.T) {
	var _ quota.Store = openTestDB(t)
}

func TestBriefingHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)

	due := 7
	first := Briefing{
		GeneratedAt:  base,
		Source:       "TransportAPI",
		StopCode:     "36234788",
		Route:        "X4",
		DueMins:      &due,
		TrafficDelay: 12,
		Message:      "Traffic: +12 min. Next X4 in 7 min.",
	}
	second := Briefing{
		GeneratedAt: base.Add(10 * time.Minute),
		Source:      "Lothian Scrape",
		StopCode:    "36234788",
	}

	if err := db.RecordBriefing(ctx, first); err != nil {
		t.Fatalf("record briefing: %v", err)
	}
	if err := db.RecordBriefing(ctx, second); err != nil {
		t.Fatalf("record briefing: %v", err)
	}

	got, err := db.RecentBriefings(ctx, 10)
	if err != nil {
		t.Fatalf("recent briefings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 briefings, got %d", len(got))
	}
	if got[0].Source != "Lothian Scrape" {
		t.Fatalf("expected newest first, got %+v", got[0])
	}
	if got[1].Route != "X4" || got[1].DueMins == nil || *got[1].DueMins != 7 {
		t.Fatalf("round trip mangled briefing: %+v", got[1])
	}
	if got[0].DueMins != nil || got[0].Route != "" {
		t.Fatalf("expected absent optional fields, got %+v", got[0])
	}

	got, err = db.RecentBriefings(ctx, 1)
	if err != nil {
		t.Fatalf("recent briefings with limit: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("limit ignored, got %d rows", len(got))
	}
}
