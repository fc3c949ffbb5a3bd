package briefing

import (
	"context"
	"testing"
	"time"

	"github.com/calmackay/commutecast/pkg/hass"
	"github.com/calmackay/commutecast/pkg/quota"
	"github.com/calmackay/commutecast/pkg/transit"
)

var (
	office = []string{"Office", "Edinburgh"}
	wfh    = []string{"WFH", "Home", "Remote"}
)

func TestCommuteDay(t *testing.T) {
	cases := []struct {
		name string
		cal  *hass.CalendarEvent
		want bool
	}{
		{"no calendar fails open", nil, true},
		{"idle calendar", &hass.CalendarEvent{State: "off"}, false},
		{"office event", &hass.CalendarEvent{State: "on", Message: "Office - Edinburgh"}, true},
		{"case insensitive", &hass.CalendarEvent{State: "on", Message: "at the OFFICE today"}, true},
		{"wfh wins over office", &hass.CalendarEvent{State: "on", Message: "Office day (WFH actually)"}, false},
		{"wfh only", &hass.CalendarEvent{State: "on", Message: "Working from Home"}, false},
		{"unrelated event", &hass.CalendarEvent{State: "on", Message: "Dentist"}, false},
		{"active but empty title", &hass.CalendarEvent{State: "on"}, false},
	}
	for _, c := range cases {
		if got := CommuteDay(c.cal, office, wfh); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTrafficDelay(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	cases := []struct {
		travel   *float64
		baseline int
		want     int
	}{
		{f(57), 45, 12},
		{f(45), 45, 0},
		{f(30), 45, 0}, // faster than usual clamps to zero
		{nil, 45, 0},
		{f(57.9), 45, 12},
	}
	for _, c := range cases {
		if got := TrafficDelay(c.travel, c.baseline); got != c.want {
			t.Errorf("TrafficDelay(%v, %d) = %d, want %d", c.travel, c.baseline, got, c.want)
		}
	}
}

func TestInWindow(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2024, 3, 12, h, m, 0, 0, time.UTC)
	}
	cases := []struct {
		t          time.Time
		start, end string
		want       bool
	}{
		{at(8, 30), "08:00", "09:00", true},
		{at(8, 0), "08:00", "09:00", true},
		{at(9, 0), "08:00", "09:00", true},
		{at(7, 59), "08:00", "09:00", false},
		{at(9, 1), "08:00", "09:00", false},
		{at(23, 0), "garbage", "09:00", true}, // unparseable bounds fail open
	}
	for _, c := range cases {
		if got := InWindow(c.t, c.start, c.end); got != c.want {
			t.Errorf("InWindow(%v, %q, %q) = %v, want %v", c.t, c.start, c.end, got, c.want)
		}
	}
}

func TestPotentialIssue(t *testing.T) {
	withDue := func(n int) *transit.Departure {
		return &transit.Departure{Route: "X4", DueMins: transit.IntPtr(n)}
	}
	cases := []struct {
		name  string
		delay int
		next  *transit.Departure
		want  bool
	}{
		{"all clear", 5, withDue(8), false},
		{"traffic at threshold", 10, withDue(8), true},
		{"long bus gap", 0, withDue(20), true},
		{"no bus data", 0, nil, true},
		{"bus without due time", 0, &transit.Departure{Route: "X4"}, true},
	}
	for _, c := range cases {
		if got := PotentialIssue(c.delay, 10, c.next, 20); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestShouldNotify(t *testing.T) {
	cfg := Config{
		TrafficDelayThreshold: 10,
		BusGapThreshold:       20,
		WindowStart:           "08:00",
		WindowEnd:             "09:00",
	}
	e := newTestEngine(cfg, quota.Config{DailyQuota: 30}, &fakePrimary{}, &fakeFallback{})

	snap := &transit.Snapshot{
		Source:     transit.SourcePrimary,
		Departures: []transit.Departure{{Route: "X4", DueMins: transit.IntPtr(25)}},
	}
	b := &Briefing{Snapshot: snap, CommuteDay: true, GeneratedAt: engineNow}

	if !e.ShouldNotify(b) {
		t.Fatal("long bus gap inside the window on a commute day should notify")
	}

	b.CommuteDay = false
	if e.ShouldNotify(b) {
		t.Fatal("non-commute day must not notify")
	}

	b.CommuteDay = true
	b.GeneratedAt = time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	if e.ShouldNotify(b) {
		t.Fatal("outside the commute window must not notify")
	}

	b.GeneratedAt = engineNow
	b.Snapshot.Departures[0].DueMins = transit.IntPtr(8)
	b.TrafficDelay = 3
	if e.ShouldNotify(b) {
		t.Fatal("an uneventful morning must not notify")
	}
}

type fakeContext struct {
	cal       hass.CalendarEvent
	travel    float64
	travelOK  bool
	calErr    error
	travelErr error
}

func (f *fakeContext) CalendarState(ctx context.Context, entityID string) (hass.CalendarEvent, error) {
	return f.cal, f.calErr
}

func (f *fakeContext) NumericState(ctx context.Context, entityID string) (float64, bool, error) {
	return f.travel, f.travelOK, f.travelErr
}

func TestRunEvaluatesContext(t *testing.T) {
	cfg := Config{
		BaselineMins:   45,
		CalendarEntity: "calendar.work",
		TravelEntity:   "sensor.commute_time",
		OfficeKeywords: office,
		WFHKeywords:    wfh,
	}
	src := &fakeContext{
		cal:      hass.CalendarEvent{State: "on", Message: "Office"},
		travel:   57,
		travelOK: true,
	}
	e := newTestEngine(cfg, quota.Config{DailyQuota: 30, MaxAutoCalls: 10},
		&fakePrimary{body: []byte(primaryPayload)}, &fakeFallback{}).WithContextSource(src)

	b := e.Run(context.Background(), false)

	if !b.CommuteDay {
		t.Error("office calendar event should mark a commute day")
	}
	if b.TravelMins == nil || *b.TravelMins != 57 {
		t.Errorf("travel minutes not captured: %v", b.TravelMins)
	}
	if b.TrafficDelay != 12 {
		t.Errorf("traffic delay = %d, want 12", b.TrafficDelay)
	}
}

func TestRunContextFailuresFailOpen(t *testing.T) {
	cfg := Config{
		BaselineMins:   45,
		CalendarEntity: "calendar.work",
		TravelEntity:   "sensor.commute_time",
	}
	src := &fakeContext{
		calErr:    context.DeadlineExceeded,
		travelErr: context.DeadlineExceeded,
	}
	e := newTestEngine(cfg, quota.Config{DailyQuota: 30, MaxAutoCalls: 10},
		&fakePrimary{body: []byte(primaryPayload)}, &fakeFallback{}).WithContextSource(src)

	b := e.Run(context.Background(), false)

	if !b.CommuteDay {
		t.Error("calendar failure should fail open to a commute day")
	}
	if b.TravelMins != nil || b.TrafficDelay != 0 {
		t.Errorf("travel failure should read as no data: %v / %d", b.TravelMins, b.TrafficDelay)
	}
}
