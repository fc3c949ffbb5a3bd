package briefing

import (
	"context"
	"fmt"
	"strings"

	"github.com/calmackay/commutecast/pkg/transit"
)

// NotificationTitle heads every briefing push.
const NotificationTitle = "Commute Briefing"

// Notifier delivers a composed briefing. Satisfied by *hass.Client.
type Notifier interface {
	Notify(ctx context.Context, service, title, message string) error
}

// ComposeMessage renders the two-line briefing body: one traffic line,
// one bus line. Either half degrades to "No data available" on its own.
func ComposeMessage(travelMins *float64, trafficDelay int, next *transit.Departure, source string) string {
	trafficLine := "Traffic: No data available"
	if travelMins != nil {
		sign := ""
		if trafficDelay > 0 {
			sign = "+"
		}
		trafficLine = fmt.Sprintf("Traffic: %d min (%s%d vs usual)", int(*travelMins), sign, trafficDelay)
	}

	busLine := "Bus: No data available"
	if next != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "Bus: Route %s", next.Route)
		if next.DueMins != nil {
			fmt.Fprintf(&b, " in %d min", *next.DueMins)
		}
		if next.Aimed != "" {
			fmt.Fprintf(&b, " at %s", next.Aimed)
		}
		fmt.Fprintf(&b, " - %s (%s)", next.Status, source)
		busLine = b.String()
	}

	return trafficLine + "\n" + busLine
}
