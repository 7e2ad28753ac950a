package ui

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count in IEC units, e.g. "1.5 GiB".
func FormatBytes(n uint64) string { return humanize.IBytes(n) }

// FormatAge renders t relative to now, e.g. "3 minutes ago".
func FormatAge(t time.Time) string { return humanize.Time(t) }

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
