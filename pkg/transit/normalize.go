package transit

import (
	"time"

	"github.com/tidwall/gjson"
)

// DueMinutes converts an HH:MM departure time into minutes from now,
// rolling to the next day when the clock time has already passed.
// Returns nil when the text is not a parseable clock time.
func DueMinutes(hhmm string, now time.Time) *int {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil
	}
	dep := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if dep.Before(now) {
		dep = dep.Add(24 * time.Hour)
	}
	mins := int(dep.Sub(now).Minutes())
	return &mins
}

// classifyStatus compares aimed vs expected times. Expected later means
// Late, earlier means Early. With only one time present the departure is
// On time when an expected estimate exists, otherwise Scheduled.
func classifyStatus(aimed, expected string) string {
	if aimed != "" && expected != "" && aimed != expected {
		at, errA := time.Parse("15:04", aimed)
		et, errE := time.Parse("15:04", expected)
		if errA != nil || errE != nil {
			return StatusOnTime
		}
		switch {
		case et.After(at):
			return StatusLate
		case et.Before(at):
			return StatusEarly
		}
		return StatusOnTime
	}
	if expected != "" {
		return StatusOnTime
	}
	return StatusScheduled
}

// NormalizePrimary maps a TransportAPI live.json payload into canonical
// departures. The payload groups departures by route:
//
//	{"departures": {"12": [{"aimed_departure_time": "08:05", ...}]}}
//
// Departures outside the allow-list are dropped, the rest are sorted
// ascending by due minutes.
func NormalizePrimary(body []byte, allow []string, now time.Time) []Departure {
	var deps []Departure
	allowed := make(map[string]struct{}, len(allow))
	for _, r := range allow {
		allowed[r] = struct{}{}
	}

	gjson.GetBytes(body, "departures").ForEach(func(route, list gjson.Result) bool {
		if len(allowed) > 0 {
			if _, ok := allowed[route.String()]; !ok {
				return true
			}
		}
		list.ForEach(func(_, dep gjson.Result) bool {
			aimed := dep.Get("aimed_departure_time").String()
			expected := dep.Get("expected_departure_time").String()
			if expected == "" {
				expected = aimed
			}
			best := dep.Get("best_departure_estimate").String()
			if best == "" {
				best = expected
			}
			if best == "" {
				best = aimed
			}

			var due *int
			if best != "" {
				due = DueMinutes(best, now)
			}

			deps = append(deps, Departure{
				Route:       route.String(),
				DueMins:     due,
				Aimed:       aimed,
				Expected:    expected,
				Destination: dep.Get("direction").String(),
				Status:      classifyStatus(aimed, expected),
				IsRealtime:  expected != "" && expected != aimed,
			})
			return true
		})
		return true
	})

	SortDepartures(deps)
	return deps
}

// NormalizeFallback applies the allow-list and canonical ordering to
// departures already shaped by the fallback service.
func NormalizeFallback(sd *StopDepartures, allow []string) []Departure {
	deps := FilterRoutes(sd.Departures, allow)
	SortDepartures(deps)
	return deps
}
