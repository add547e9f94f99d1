package outage

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ClockLayout is the canonical time-of-day format of event boundaries.
	ClockLayout = "15:04:05"
	// shortClockLayout is what the source usually prints.
	shortClockLayout = "15:04"
	// clockSkew tolerates boundaries slightly ahead of the local clock.
	clockSkew = 5 * time.Minute
)

// NormalizeClock converts "HH:MM" or "HH:MM:SS" into "HH:MM:SS".
// Unparseable input is returned trimmed with ok set to false.
func NormalizeClock(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	for _, layout := range []string{ClockLayout, shortClockLayout} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format(ClockLayout), true
		}
	}

	return raw, false
}

// Anchor pairs a "HH:MM:SS" clock with a full date: the latest day on which
// that clock is not after ref (plus a small skew). Bare clocks are ambiguous
// across midnight, so elapsed time is always computed from anchored values.
func Anchor(clock string, ref time.Time) (time.Time, bool) {
	parsed, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return ref, false
	}

	year, month, day := ref.Date()
	candidate := time.Date(year, month, day, parsed.Hour(), parsed.Minute(), parsed.Second(), 0, ref.Location())

	if candidate.After(ref.Add(clockSkew)) {
		candidate = candidate.AddDate(0, 0, -1)
	}

	return candidate, true
}

// FormatElapsed renders d as zero-padded hours, minutes and seconds using
// floor division. Negative durations render as zero.
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	return fmt.Sprintf("%02d год %02d хв %02d с", hours, minutes, seconds)
}
