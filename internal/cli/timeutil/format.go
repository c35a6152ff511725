// Package timeutil provides time formatting utilities for CLI output.
package timeutil

import (
	"fmt"
	"time"
)

// LocalTimeFormat is the format used for displaying local times in CLI output.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatUptime renders d as "3d 0h 30m 15s", dropping leading zero units.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatMillis renders a scenario latency in milliseconds, switching to
// seconds once it reaches one.
func FormatMillis(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.1fms", ms)
}

// FormatTime returns t in local time, or "-" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(LocalTimeFormat)
}
