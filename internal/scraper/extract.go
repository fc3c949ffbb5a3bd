package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/calmackay/commutecast/internal/utils"
	"github.com/calmackay/commutecast/pkg/transit"
)

// The live-times page is not ours and changes without notice, so every
// field is located by an ordered chain of candidate selectors, first
// match wins. A row missing a route is skipped; any other missing field
// degrades to an absent value.
var (
	stopNameSelectors = []string{
		".stop-name",
		"h1.stop-title",
		"h2.stop-name",
		".departure-board-header h2",
		"[data-stop-name]",
	}
	departureRowSelectors = []string{
		".departure-row",
		".bus-departure",
		"tr.departure",
		".live-times li",
		".departure-board tbody tr",
		"[data-departure]",
	}
	routeSelectors  = []string{".route", ".service", ".bus-number", "td:first-child", ".line-number"}
	timeSelectors   = []string{".time", ".due", ".minutes", "td:last-child", ".departure-time"}
	destSelectors   = []string{".destination", ".to", "td:nth-child(2)"}
	statusSelectors = []string{".status", ".delay", "[data-status]"}
)

// maxDepartureRows bounds extraction per page.
const maxDepartureRows = 10

var minsPattern = regexp.MustCompile(`(\d+)`)

// firstText resolves a selector chain against s, returning the first
// non-empty trimmed text it finds.
func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// parseTimeText understands the three shapes the departure board uses:
// relative ("Due", "now"), minute counts ("5 min"), and clock times
// ("08:45", rolled to the next day when already past). Anything else
// yields an absent due time.
func parseTimeText(text string, now time.Time) *int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "due"), strings.Contains(lower, "now"):
		return transit.IntPtr(0)
	case strings.Contains(lower, "min"):
		if m := minsPattern.FindString(text); m != "" {
			n, err := strconv.Atoi(m)
			if err == nil {
				return transit.IntPtr(n)
			}
		}
		return nil
	case strings.Contains(text, ":"):
		return parseClockTime(text, now)
	}
	return nil
}

func parseClockTime(text string, now time.Time) *int {
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return nil
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return nil
	}
	// Minute digits only; tolerates suffixes like "08:45am".
	minDigits := parts[1]
	if len(minDigits) > 2 {
		minDigits = minDigits[:2]
	}
	minute, err := strconv.Atoi(minDigits)
	if err != nil || minute < 0 || minute > 59 {
		return nil
	}
	dep := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if dep.Before(now) {
		dep = dep.Add(24 * time.Hour)
	}
	return transit.IntPtr(int(dep.Sub(now).Minutes()))
}

func parseStatusText(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "late"), strings.Contains(lower, "delayed"):
		return transit.StatusLate
	case strings.Contains(lower, "early"):
		return transit.StatusEarly
	case strings.Contains(lower, "on time"):
		return transit.StatusOnTime
	}
	return transit.StatusScheduled
}

// isClockTime reports whether a time text looks like an HH:MM value
// suitable for the aimed/expected fields.
func isClockTime(text string, now time.Time) bool {
	return strings.Contains(text, ":") && parseClockTime(text, now) != nil
}

// extractDepartures pulls up to maxDepartureRows departures and the stop
// name out of a rendered live-times page.
func extractDepartures(doc *goquery.Document, now time.Time) ([]transit.Departure, string) {
	stopName := firstText(doc.Selection, stopNameSelectors)

	var rows *goquery.Selection
	for _, sel := range departureRowSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			utils.Log.Debugf("found %d departure rows with selector %q", found.Length(), sel)
			rows = found
			break
		}
	}
	if rows == nil {
		return nil, stopName
	}

	var deps []transit.Departure
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= maxDepartureRows {
			return false
		}
		route := firstText(row, routeSelectors)
		if route == "" {
			return true
		}

		d := transit.Departure{
			Route:       route,
			Destination: firstText(row, destSelectors),
			Status:      transit.StatusScheduled,
		}
		if timeText := firstText(row, timeSelectors); timeText != "" {
			d.DueMins = parseTimeText(timeText, now)
			if isClockTime(timeText, now) {
				d.Aimed = timeText
				d.Expected = timeText
			}
		}
		if statusText := firstText(row, statusSelectors); statusText != "" {
			d.Status = parseStatusText(statusText)
		}
		deps = append(deps, d)
		return true
	})

	return deps, stopName
}
