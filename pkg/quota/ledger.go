// Package quota tracks daily calls against the metered primary transit API
// and decides whether a given caller may spend one.
//
// A slice of the daily budget is reserved for manual (user-triggered)
// refreshes so the background timer can never starve them, and an
// independent cap bounds automatic calls outright.
package quota

import (
	"sync"
	"time"

	"github.com/calmackay/commutecast/internal/utils"
)

// CallKind distinguishes timer-driven calls from user-triggered ones.
type CallKind string

const (
	Automatic CallKind = "auto"
	Manual    CallKind = "manual"
	// AutomaticEmpty marks a timer-driven call whose payload carried no
	// usable departures. It spends the shared daily total but not the
	// automatic cap, which only tracks calls that produced data.
	AutomaticEmpty CallKind = "auto_empty"
)

// Store persists the call log so a restart does not forget today's spend.
// Implementations must be safe for concurrent use.
type Store interface {
	RecordCall(day string, kind CallKind, at time.Time) error
	CallsForDay(day string) (total int, auto int, err error)
}

// Config holds the admission limits.
type Config struct {
	DailyQuota        int
	ReservedForManual int
	MaxAutoCalls      int
}

// Ledger is the single owner of today's call counters. All admission
// checks and recordings go through it; counters reset together exactly
// once per calendar day, on first access after the date changes.
type Ledger struct {
	mu            sync.Mutex
	cfg           Config
	callsToday    int
	autoToday     int
	lastResetDate string // YYYY-MM-DD, empty until first use
	store         Store
	now           func() time.Time
}

// NewLedger builds a ledger. store may be nil for a purely in-memory
// ledger; persistence failures degrade to in-memory behavior and never
// block admission.
func NewLedger(cfg Config, store Store) *Ledger {
	l := &Ledger{cfg: cfg, store: store, now: time.Now}
	l.restore()
	return l
}

func (l *Ledger) restore() {
	if l.store == nil {
		return
	}
	day := l.now().Format("2006-01-02")
	total, auto, err := l.store.CallsForDay(day)
	if err != nil {
		utils.Log.Warnf("quota: could not restore call counters: %v", err)
		return
	}
	l.callsToday = total
	l.autoToday = auto
	l.lastResetDate = day
}

func (l *Ledger) resetIfNewDayLocked() {
	day := l.now().Format("2006-01-02")
	if l.lastResetDate != day {
		l.callsToday = 0
		l.autoToday = 0
		l.lastResetDate = day
		utils.Log.Info("quota: daily call counters reset")
	}
}

// ResetIfNewDay zeroes both counters when the stored last-reset date
// differs from today's date.
func (l *Ledger) ResetIfNewDay() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfNewDayLocked()
}

// CanAdmitAutomatic reports whether a timer-driven call may hit the
// primary API without eating into the manual reservation or exceeding
// the automatic cap.
func (l *Ledger) CanAdmitAutomatic() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfNewDayLocked()
	return l.callsToday < l.cfg.DailyQuota-l.cfg.ReservedForManual &&
		l.autoToday < l.cfg.MaxAutoCalls
}

// CanAdmitManual reports whether a user-triggered call fits in the
// overall daily quota.
func (l *Ledger) CanAdmitManual() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfNewDayLocked()
	return l.callsToday < l.cfg.DailyQuota
}

// RecordCall bills one confirmed primary-API call. Manual calls count
// against the total only, never against the automatic cap.
func (l *Ledger) RecordCall(kind CallKind) {
	l.record(kind)
}

// RecordEmptyCall bills a confirmed call that produced no usable
// departures. The provider metered it, so it spends the daily total,
// but an automatic call in this state does not consume the auto cap.
func (l *Ledger) RecordEmptyCall(kind CallKind) {
	if kind == Automatic {
		kind = AutomaticEmpty
	}
	l.record(kind)
}

func (l *Ledger) record(kind CallKind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfNewDayLocked()
	l.callsToday++
	if kind == Automatic {
		l.autoToday++
	}
	if l.store != nil {
		if err := l.store.RecordCall(l.lastResetDate, kind, l.now()); err != nil {
			utils.Log.Warnf("quota: could not persist call record: %v", err)
		}
	}
}

// State is a read-only view of the ledger for status reporting.
type State struct {
	CallsToday     int    `json:"calls_today"`
	AutoCallsToday int    `json:"auto_calls_today"`
	DailyQuota     int    `json:"daily_quota"`
	Remaining      int    `json:"remaining"`
	Day            string `json:"day"`
}

// Snapshot returns the current counters after applying day rollover.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfNewDayLocked()
	remaining := l.cfg.DailyQuota - l.callsToday
	if remaining < 0 {
		remaining = 0
	}
	return State{
		CallsToday:     l.callsToday,
		AutoCallsToday: l.autoToday,
		DailyQuota:     l.cfg.DailyQuota,
		Remaining:      remaining,
		Day:            l.lastResetDate,
	}
}
