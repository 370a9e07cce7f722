package util //nolint:revive // package name util hosts shared formatting helpers for operator-facing output

import (
	"fmt"
	"time"
)

// FormatAge formats the time elapsed since a timestamp for display, handling
// edge cases. Returns "—" for zero or future timestamps, truncates to whole
// seconds for readability.
func FormatAge(since time.Time, now time.Time) string {
	if since.IsZero() || !since.Before(now) {
		return "—"
	}
	return now.Sub(since).Truncate(time.Second).String()
}

// FormatRate formats a records-per-second rate for display. Idle jobs show
// "idle" rather than a meaningless 0.0/s.
func FormatRate(rate float64) string {
	if rate <= 0 {
		return "idle"
	}
	return fmt.Sprintf("%.1f/s", rate)
}
