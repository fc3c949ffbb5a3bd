package transit

import "sort"

// Data sources a snapshot can come from.
const (
	SourcePrimary  = "TransportAPI"
	SourceFallback = "Lothian Scrape"
	SourceNone     = "None"
)

// Departure statuses, matching the wire strings used by both sources.
const (
	StatusScheduled = "Scheduled"
	StatusOnTime    = "On time"
	StatusLate      = "Late"
	StatusEarly     = "Early"
	StatusUnknown   = "Unknown"
)

// Departures with no usable due time sort after everything else.
// Downstream gap alerting relies on this exact sentinel.
const unknownDueSentinel = 999

// Departure is the canonical departure record both sources normalize into.
type Departure struct {
	Route       string `json:"route"`
	DueMins     *int   `json:"due_mins"`
	Aimed       string `json:"aimed,omitempty"`
	Expected    string `json:"expected,omitempty"`
	Destination string `json:"destination,omitempty"`
	Status      string `json:"status"`
	IsRealtime  bool   `json:"is_realtime"`
}

// StopDepartures is the fallback service's response shape for one stop.
type StopDepartures struct {
	StopCode    string      `json:"stop_code"`
	StopName    string      `json:"stop_name,omitempty"`
	GeneratedAt string      `json:"generated_at"`
	Departures  []Departure `json:"departures"`
	Error       string      `json:"error,omitempty"`
	Cached      bool        `json:"cached"`
}

// Snapshot is the normalized result of one fetch cycle. It is built once
// per cycle and superseded, never mutated, by the next one.
type Snapshot struct {
	Source     string      `json:"source"`
	StopCode   string      `json:"stop_code"`
	StopName   string      `json:"stop_name,omitempty"`
	Departures []Departure `json:"departures"`
}

// Next returns the earliest departure, or nil when the snapshot is empty.
func (s *Snapshot) Next() *Departure {
	if s == nil || len(s.Departures) == 0 {
		return nil
	}
	return &s.Departures[0]
}

func sortKey(d Departure) int {
	if d.DueMins == nil {
		return unknownDueSentinel
	}
	return *d.DueMins
}

// SortDepartures orders departures ascending by due minutes, unknown last.
func SortDepartures(deps []Departure) {
	sort.SliceStable(deps, func(i, j int) bool {
		return sortKey(deps[i]) < sortKey(deps[j])
	})
}

// FilterRoutes drops departures whose route is not in the allow-list.
// An empty allow-list keeps everything.
func FilterRoutes(deps []Departure, allow []string) []Departure {
	if len(allow) == 0 {
		return deps
	}
	allowed := make(map[string]struct{}, len(allow))
	for _, r := range allow {
		allowed[r] = struct{}{}
	}
	out := make([]Departure, 0, len(deps))
	for _, d := range deps {
		if _, ok := allowed[d.Route]; ok {
			out = append(out, d)
		}
	}
	return out
}

// IntPtr is a small helper for building optional due-minute values.
func IntPtr(v int) *int { return &v }
