package outage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNormalizeClock checks short, full and invalid clocks.
func TestNormalizeClock(t *testing.T) {
	t.Parallel()

	clock, ok := NormalizeClock(" 10:00 ")
	require.True(t, ok)
	require.Equal(t, "10:00:00", clock)

	clock, ok = NormalizeClock("9:05")
	require.True(t, ok)
	require.Equal(t, "09:05:00", clock)

	clock, ok = NormalizeClock("14:30:15")
	require.True(t, ok)
	require.Equal(t, "14:30:15", clock)

	clock, ok = NormalizeClock(" -- ")
	require.False(t, ok)
	require.Equal(t, "--", clock)
}

// TestAnchor verifies clocks are paired with the right date around midnight.
func TestAnchor(t *testing.T) {
	t.Parallel()

	ref := time.Date(2026, 10, 19, 0, 10, 0, 0, time.UTC)

	// Outage started before midnight.
	anchored, ok := Anchor("23:30:00", ref)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC), anchored)

	// Same day.
	anchored, ok = Anchor("00:05:00", ref)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 10, 19, 0, 5, 0, 0, time.UTC), anchored)

	// Slightly ahead of the local clock stays on the same day.
	anchored, ok = Anchor("00:12:00", ref)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 10, 19, 0, 12, 0, 0, time.UTC), anchored)

	// Unparseable falls back to the reference.
	anchored, ok = Anchor("soon", ref)
	require.False(t, ok)
	require.Equal(t, ref, anchored)
}

// TestFormatElapsed covers floor division, zero padding and clamping.
func TestFormatElapsed(t *testing.T) {
	t.Parallel()

	require.Equal(t, "01 год 01 хв 01 с", FormatElapsed(3661*time.Second))
	require.Equal(t, "00 год 00 хв 00 с", FormatElapsed(0))
	require.Equal(t, "00 год 00 хв 59 с", FormatElapsed(59*time.Second+999*time.Millisecond))
	require.Equal(t, "99 год 59 хв 59 с", FormatElapsed(100*time.Hour-time.Second))
	require.Equal(t, "00 год 00 хв 00 с", FormatElapsed(-time.Hour))
}
