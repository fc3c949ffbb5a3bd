// Package briefing runs the fetch cycle that turns raw transit and
// traffic inputs into one commute briefing: pick a source under quota
// rules, normalize departures, evaluate commute context, and compose
// the notification.
package briefing

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/calmackay/commutecast/internal/utils"
	"github.com/calmackay/commutecast/pkg/hass"
	"github.com/calmackay/commutecast/pkg/quota"
	"github.com/calmackay/commutecast/pkg/storage"
	"github.com/calmackay/commutecast/pkg/transit"
)

// PrimarySource is the metered live-departures API.
type PrimarySource interface {
	LiveDepartures(ctx context.Context, stopCode string) ([]byte, error)
}

// FallbackSource is the unmetered scraper service.
type FallbackSource interface {
	StopDepartures(ctx context.Context, stopCode string) (*transit.StopDepartures, error)
}

// ContextSource reads calendar and travel-time entities. Satisfied by
// *hass.Client.
type ContextSource interface {
	CalendarState(ctx context.Context, entityID string) (hass.CalendarEvent, error)
	NumericState(ctx context.Context, entityID string) (float64, bool, error)
}

// HistoryStore archives delivered briefings. Satisfied by *storage.DB.
type HistoryStore interface {
	RecordBriefing(ctx context.Context, b storage.Briefing) error
}

type Config struct {
	PrimaryStop string
	BackupStop  string
	Routes      []string

	BaselineMins          int
	TrafficDelayThreshold int
	BusGapThreshold       int
	WindowStart           string
	WindowEnd             string

	CalendarEntity string
	TravelEntity   string
	OfficeKeywords []string
	WFHKeywords    []string

	NotifyService string
}

// Briefing is the outcome of one fetch cycle.
type Briefing struct {
	Snapshot     *transit.Snapshot
	TravelMins   *float64
	TrafficDelay int
	CommuteDay   bool
	Message      string
	Quota        quota.State
	GeneratedAt  time.Time
}

// Engine owns the fetch cycle. One cycle runs at a time; the timer loop
// and a user-triggered refresh serialize on the engine mutex. hass,
// notifier and history are all optional and degrade gracefully.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	ledger   *quota.Ledger
	primary  PrimarySource
	fallback FallbackSource
	hass     ContextSource
	notifier Notifier
	history  HistoryStore
	now      func() time.Time
}

func NewEngine(cfg Config, ledger *quota.Ledger, primary PrimarySource, fallback FallbackSource) *Engine {
	return &Engine{
		cfg:      cfg,
		ledger:   ledger,
		primary:  primary,
		fallback: fallback,
		now:      time.Now,
	}
}

func (e *Engine) WithContextSource(src ContextSource) *Engine {
	e.hass = src
	return e
}

func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

func (e *Engine) WithHistory(h HistoryStore) *Engine {
	e.history = h
	return e
}

// Run executes one fetch cycle. manual selects the looser admission
// rule reserved for user-triggered refreshes. Run never fails outright:
// a cycle where every source comes up empty still yields a briefing
// with source "None".
func (e *Engine) Run(ctx context.Context, manual bool) *Briefing {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	snap := e.fetchStop(ctx, e.cfg.PrimaryStop, manual)
	if len(snap.Departures) == 0 && e.cfg.BackupStop != "" {
		utils.Log.Infof("no departures for stop %s, trying backup stop %s", e.cfg.PrimaryStop, e.cfg.BackupStop)
		if backup := e.fetchStop(ctx, e.cfg.BackupStop, manual); len(backup.Departures) > 0 {
			snap = backup
		}
	}

	b := &Briefing{
		Snapshot:    snap,
		CommuteDay:  true,
		Quota:       e.ledger.Snapshot(),
		GeneratedAt: now,
	}
	e.evaluateContext(ctx, b)
	b.Message = ComposeMessage(b.TravelMins, b.TrafficDelay, snap.Next(), snap.Source)

	e.archive(ctx, b)
	return b
}

// fetchStop tries the primary API when the ledger admits the call, then
// falls back to the scraper service. Empty results from either source
// count as failure, not as an empty board.
func (e *Engine) fetchStop(ctx context.Context, stopCode string, manual bool) *transit.Snapshot {
	snap := &transit.Snapshot{Source: transit.SourceNone, StopCode: stopCode}
	if stopCode == "" {
		return snap
	}

	admitted := e.ledger.CanAdmitAutomatic()
	kind := quota.Automatic
	if manual {
		admitted = e.ledger.CanAdmitManual()
		kind = quota.Manual
	}

	if admitted {
		body, err := e.primary.LiveDepartures(ctx, stopCode)
		if err != nil {
			utils.Log.Warnf("primary source failed for stop %s: %v", stopCode, err)
		} else {
			if deps := transit.NormalizePrimary(body, e.cfg.Routes, e.now()); len(deps) > 0 {
				e.ledger.RecordCall(kind)
				snap.Departures = deps
				snap.Source = transit.SourcePrimary
				snap.StopName = gjson.GetBytes(body, "stop_name").String()
				return snap
			}
			// The call happened and spends the daily total, but only
			// productive calls consume the automatic cap.
			e.ledger.RecordEmptyCall(kind)
			utils.Log.Infof("primary source returned no usable departures for stop %s", stopCode)
		}
	} else {
		utils.Log.Infof("quota ledger declined %s call for stop %s, using fallback", kind, stopCode)
	}

	sd, err := e.fallback.StopDepartures(ctx, stopCode)
	if err != nil {
		utils.Log.Warnf("fallback source failed for stop %s: %v", stopCode, err)
		return snap
	}
	if sd.Error != "" {
		utils.Log.Warnf("fallback source reported for stop %s: %s", stopCode, sd.Error)
	}
	snap.StopName = sd.StopName
	if deps := transit.NormalizeFallback(sd, e.cfg.Routes); len(deps) > 0 {
		snap.Departures = deps
		snap.Source = transit.SourceFallback
	}
	return snap
}

// evaluateContext fills in traffic and commute-day fields from the
// configured entities. Read failures fail open: a briefing without
// context beats no briefing on a commute morning.
func (e *Engine) evaluateContext(ctx context.Context, b *Briefing) {
	if e.hass == nil {
		return
	}

	if e.cfg.CalendarEntity != "" {
		cal, err := e.hass.CalendarState(ctx, e.cfg.CalendarEntity)
		if err != nil {
			utils.Log.Warnf("calendar read failed, assuming commute day: %v", err)
		} else {
			b.CommuteDay = CommuteDay(&cal, e.cfg.OfficeKeywords, e.cfg.WFHKeywords)
		}
	}

	if e.cfg.TravelEntity != "" {
		mins, ok, err := e.hass.NumericState(ctx, e.cfg.TravelEntity)
		if err != nil {
			utils.Log.Warnf("travel time read failed: %v", err)
		} else if ok {
			b.TravelMins = &mins
		}
	}
	b.TrafficDelay = TrafficDelay(b.TravelMins, e.cfg.BaselineMins)
}

// ShouldNotify decides whether an automatic cycle warrants a push:
// commute day, inside the window, and something actually looks off.
func (e *Engine) ShouldNotify(b *Briefing) bool {
	if !b.CommuteDay {
		return false
	}
	if !InWindow(b.GeneratedAt, e.cfg.WindowStart, e.cfg.WindowEnd) {
		return false
	}
	return PotentialIssue(b.TrafficDelay, e.cfg.TrafficDelayThreshold, b.Snapshot.Next(), e.cfg.BusGapThreshold)
}

// Notify delivers the briefing. Delivery failures are logged and
// swallowed; a missed push must not fail the cycle.
func (e *Engine) Notify(ctx context.Context, b *Briefing) {
	if e.notifier == nil || e.cfg.NotifyService == "" {
		utils.Log.Debug("no notification target configured")
		return
	}
	if err := e.notifier.Notify(ctx, e.cfg.NotifyService, NotificationTitle, b.Message); err != nil {
		utils.Log.Errorf("failed to send notification: %v", err)
		return
	}
	utils.Log.Info("commute notification sent")
}

func (e *Engine) archive(ctx context.Context, b *Briefing) {
	if e.history == nil {
		return
	}
	rec := storage.Briefing{
		GeneratedAt:  b.GeneratedAt,
		Source:       b.Snapshot.Source,
		StopCode:     b.Snapshot.StopCode,
		TrafficDelay: b.TrafficDelay,
		Message:      b.Message,
	}
	if next := b.Snapshot.Next(); next != nil {
		rec.Route = next.Route
		rec.DueMins = next.DueMins
	}
	if err := e.history.RecordBriefing(ctx, rec); err != nil {
		utils.Log.Warnf("could not archive briefing: %v", err)
	}
}
