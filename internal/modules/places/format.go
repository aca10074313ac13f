package places

import (
	"fmt"
	"strings"
	"time"
)

// humanizeDuration renders d the way route durations are shown to users,
// e.g. "1 min", "14 mins", "1 hour 5 mins", "2 days 3 hours".
func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return "1 min"
	}
	d = d.Round(time.Minute)

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	mins := int(d / time.Minute)

	parts := make([]string, 0, 2)
	switch {
	case days > 0:
		parts = append(parts, plural(days, "day"))
		if hours > 0 {
			parts = append(parts, plural(hours, "hour"))
		}
	case hours > 0:
		parts = append(parts, plural(hours, "hour"))
		if mins > 0 {
			parts = append(parts, plural(mins, "min"))
		}
	default:
		parts = append(parts, plural(mins, "min"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
