package printer

import (
	"fmt"
	"strings"
	"time"
)

var timeAgoUnits = []struct {
	name string
	size time.Duration
}{
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
	{"second", time.Second},
}

// TimeAgo returns a human-readable relative time string in UTC.
// Examples: "5 seconds ago (UTC)", "2 minutes ago (UTC)", "3 hours ago (UTC)".
func TimeAgo(t time.Time) string {
	return timeAgo(t, time.Now().UTC())
}

func timeAgo(t, now time.Time) string {
	diff := now.Sub(t.UTC())
	if diff < 0 {
		return "in the future (UTC)"
	}

	for _, u := range timeAgoUnits {
		if diff < u.size && u.size != time.Second {
			continue
		}
		n := int(diff / u.size)
		if n == 1 {
			return fmt.Sprintf("1 %s ago (UTC)", u.name)
		}
		return fmt.Sprintf("%d %ss ago (UTC)", n, u.name)
	}

	return ""
}

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatEventTime returns the time of day of an event with millisecond precision.
func FormatEventTime(t time.Time) string {
	return t.UTC().Format("15:04:05.000")
}

const progressBarWidth = 20

// FormatProgressBar renders a 0-100 progress as a fixed width bar, e.g. "[#####---------------] 25%".
// Out of range values are clamped.
func FormatProgressBar(progress int) string {
	progress = max(0, min(100, progress))
	filled := progress * progressBarWidth / 100
	return fmt.Sprintf("[%s%s] %d%%", strings.Repeat("#", filled), strings.Repeat("-", progressBarWidth-filled), progress)
}
