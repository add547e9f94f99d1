package outage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestEvent_JSONLayout verifies the persisted shape is tagged by an off/on field.
func TestEvent_JSONLayout(t *testing.T) {
	t.Parallel()

	recorded := time.Date(2026, 10, 19, 10, 0, 30, 0, time.UTC)
	event := NewEvent(EventOff, "10:00", recorded)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	require.JSONEq(t, `{"off":"10:00:00","since":"2026-10-19T10:00:00Z","recorded_at":"2026-10-19T10:00:30Z"}`, string(data))

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, event, decoded)
}

// TestEvent_UnmarshalWithoutSince dates clock-only events in the zone the clocks were written in.
func TestEvent_UnmarshalWithoutSince(t *testing.T) {
	t.Parallel()

	kyiv := time.FixedZone("EEST", 3*60*60)
	now := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

	var history History
	require.NoError(t, json.Unmarshal([]byte(`{"A":{"events":[
		{"on":"23:50:00","recorded_at":"2026-10-19T00:20:00Z"},
		{"off":"01:30:00","recorded_at":"2026-10-19T00:00:00Z"}
	]}}`), &history))

	// Undated until the zone is known.
	require.True(t, history["A"].Events[0].Since.IsZero())

	history.Settle(kyiv, now)

	events := history.Events("A")
	require.Equal(t, EventOn, events[0].Kind)
	require.Equal(t, "23:50:00", events[0].At)
	// 00:20Z is 03:20 in Kyiv, so 23:50 is the evening before.
	require.Equal(t, time.Date(2026, 10, 18, 20, 50, 0, 0, time.UTC), events[0].Since)
	// 00:00Z is 03:00 in Kyiv, so 01:30 is the same night.
	require.Equal(t, time.Date(2026, 10, 18, 22, 30, 0, 0, time.UTC), events[1].Since)
}

// TestEvent_UnmarshalDetectionClock dates events that only carry a bare detection time.
func TestEvent_UnmarshalDetectionClock(t *testing.T) {
	t.Parallel()

	kyiv := time.FixedZone("EEST", 3*60*60)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, kyiv)

	var history History
	require.NoError(t, json.Unmarshal([]byte(`{"A":{"events":[
		{"off":"22:00:00","time":"22:01:10"},
		{"on":"06:00:00","time":"06:02:00"}
	]}}`), &history))

	history.Settle(kyiv, now)

	events := history.Events("A")
	require.Len(t, events, 2)
	require.Equal(t, time.Date(2026, 10, 18, 22, 1, 10, 0, kyiv).UTC(), events[0].RecordedAt)
	require.Equal(t, time.Date(2026, 10, 18, 22, 0, 0, 0, kyiv).UTC(), events[0].Since)
	require.Equal(t, time.Date(2026, 10, 19, 6, 2, 0, 0, kyiv).UTC(), events[1].RecordedAt)
	require.Equal(t, time.Date(2026, 10, 19, 6, 0, 0, 0, kyiv).UTC(), events[1].Since)

	// The outage lasted the night, not millions of hours.
	n := Process(history, Observation{Address: "A", State: WithPower, ScheduledEnd: "06:00", Now: now})
	require.Nil(t, n.Appended)
	require.NotNil(t, n.Previous)
	require.Equal(t, 8*time.Hour, n.Previous.Elapsed)
	require.Equal(t, 3*time.Hour, n.Current.Elapsed)

	var undated Event
	require.ErrorIs(t, json.Unmarshal([]byte(`{"off":"22:00:00"}`), &undated), ErrUndatedEvent)
}

// TestEvent_UnmarshalMalformed rejects events with no or both kind fields.
func TestEvent_UnmarshalMalformed(t *testing.T) {
	t.Parallel()

	var decoded Event

	err := json.Unmarshal([]byte(`{"recorded_at":"2026-10-19T00:20:00Z"}`), &decoded)
	require.ErrorIs(t, err, ErrMalformedEvent)

	err = json.Unmarshal([]byte(`{"off":"10:00:00","on":"11:00:00","recorded_at":"2026-10-19T00:20:00Z"}`), &decoded)
	require.ErrorIs(t, err, ErrMalformedEvent)
}

// TestEventKind_String covers names and opposites.
func TestEventKind_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "off", EventOff.String())
	require.Equal(t, "on", EventOn.String())
	require.Equal(t, EventOn, EventOff.Opposite())
	require.Equal(t, EventOff, EventOn.Opposite())
	require.Equal(t, EventOff, KindFor(WithoutPower))
	require.Equal(t, EventOn, KindFor(WithPower))
}
