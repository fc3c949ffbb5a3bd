package briefing

import (
	"strings"
	"time"

	"github.com/calmackay/commutecast/pkg/hass"
	"github.com/calmackay/commutecast/pkg/transit"
)

// CommuteDay decides whether today calls for a briefing at all. No
// calendar configured means fail open. With a calendar, an event must
// be active and office-flavored; any work-from-home keyword wins over
// office keywords.
func CommuteDay(cal *hass.CalendarEvent, officeKeywords, wfhKeywords []string) bool {
	if cal == nil {
		return true
	}
	if !cal.Active() {
		return false
	}
	title := strings.ToLower(cal.Message)
	return containsAny(title, officeKeywords) && !containsAny(title, wfhKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// TrafficDelay is observed travel time minus the usual baseline,
// clamped at zero. Absent travel data reads as no known delay.
func TrafficDelay(travelMins *float64, baselineMins int) int {
	if travelMins == nil {
		return 0
	}
	delay := int(*travelMins) - baselineMins
	if delay < 0 {
		return 0
	}
	return delay
}

// InWindow reports whether t falls inside the HH:MM commute window,
// bounds inclusive. Unparseable bounds fail open.
func InWindow(t time.Time, start, end string) bool {
	s, errS := time.Parse("15:04", start)
	e, errE := time.Parse("15:04", end)
	if errS != nil || errE != nil {
		return true
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= s.Hour()*60+s.Minute() && mins <= e.Hour()*60+e.Minute()
}

// PotentialIssue reports whether the morning looks troublesome: traffic
// delay at or over the threshold, a long wait for the next bus, or no
// bus data at all.
func PotentialIssue(trafficDelay, delayThreshold int, next *transit.Departure, gapThreshold int) bool {
	if trafficDelay >= delayThreshold {
		return true
	}
	if next == nil || next.DueMins == nil {
		return true
	}
	return *next.DueMins >= gapThreshold
}
