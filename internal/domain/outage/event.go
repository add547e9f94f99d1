package outage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventKind tags an Event as the start of an outage or of a powered window.
type EventKind uint8

const (
	// EventOff marks power going away.
	EventOff EventKind = iota + 1
	// EventOn marks power coming back.
	EventOn
)

// String implements fmt.Stringer and matches the persisted field name.
func (k EventKind) String() string {
	switch k {
	case EventOff:
		return "off"
	case EventOn:
		return "on"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Opposite returns the other kind.
func (k EventKind) Opposite() EventKind {
	if k == EventOff {
		return EventOn
	}

	return EventOff
}

// KindFor maps a classified state to the event that opens it.
func KindFor(state PowerState) EventKind {
	if state == WithoutPower {
		return EventOff
	}

	return EventOn
}

// Event is a single transition in an address history.
type Event struct {
	// Kind tells whether power went off or came back.
	Kind EventKind
	// At is the boundary clock as reported by the source, "HH:MM:SS" when parseable.
	At string
	// Since is At paired with a full date. It falls back to RecordedAt when At is unparseable.
	Since time.Time
	// RecordedAt is the poll time when the event was detected.
	RecordedAt time.Time

	// detectedClock is the bare detection clock of events written without recorded_at.
	detectedClock string
}

// NewEvent builds an event for the raw boundary clock detected at recordedAt.
func NewEvent(kind EventKind, rawClock string, recordedAt time.Time) Event {
	clock, _ := NormalizeClock(rawClock)
	since, _ := Anchor(clock, recordedAt)

	return Event{
		Kind:       kind,
		At:         clock,
		Since:      since.UTC(),
		RecordedAt: recordedAt.UTC(),
	}
}

// SameBoundary reports whether e and other describe the same scheduled boundary.
func (e Event) SameBoundary(other Event) bool {
	return e.Kind == other.Kind && e.At == other.At
}

// Clock returns the boundary clock in loc. It differs from At only when the
// reported clock was not usable as the window start.
func (e Event) Clock(loc *time.Location) string {
	if _, ok := NormalizeClock(e.At); !ok || e.Since.IsZero() {
		return e.At
	}

	return e.Since.In(loc).Format(ClockLayout)
}

var (
	// ErrMalformedEvent is returned when a persisted event has neither or both kind fields.
	ErrMalformedEvent = errors.New("event must carry exactly one of off/on")
	// ErrUndatedEvent is returned when a persisted event has neither recorded_at nor time.
	ErrUndatedEvent = errors.New("event must carry recorded_at or time")
)

// eventJSON is the persisted layout of an Event. Time is the detection clock
// of files written before recorded_at existed.
type eventJSON struct {
	Off        *string    `json:"off,omitempty"`
	On         *string    `json:"on,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	Time       string     `json:"time,omitempty"`
}

// MarshalJSON encodes the event as {"off"|"on": clock, "since", "recorded_at"}.
func (e Event) MarshalJSON() ([]byte, error) {
	at := e.At
	since := e.Since.UTC()
	recordedAt := e.RecordedAt.UTC()

	payload := eventJSON{
		Since:      &since,
		RecordedAt: &recordedAt,
	}

	switch e.Kind {
	case EventOff:
		payload.Off = &at
	case EventOn:
		payload.On = &at
	default:
		return nil, fmt.Errorf("marshal %s: %w", e.Kind, ErrMalformedEvent)
	}

	return json.Marshal(payload)
}

// UnmarshalJSON decodes the persisted layout. Events written without "since"
// or "recorded_at" are left undated until History.Settle pairs them with the
// time zone their clocks were written in.
func (e *Event) UnmarshalJSON(data []byte) error {
	var payload eventJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	switch {
	case payload.Off != nil && payload.On == nil:
		e.Kind, e.At = EventOff, *payload.Off
	case payload.On != nil && payload.Off == nil:
		e.Kind, e.At = EventOn, *payload.On
	default:
		return ErrMalformedEvent
	}

	e.Since, e.RecordedAt, e.detectedClock = time.Time{}, time.Time{}, ""

	switch {
	case payload.RecordedAt != nil:
		e.RecordedAt = payload.RecordedAt.UTC()
	case payload.Time != "":
		e.detectedClock, _ = NormalizeClock(payload.Time)
	default:
		return ErrUndatedEvent
	}

	if payload.Since != nil {
		e.Since = payload.Since.UTC()
	}

	return nil
}
