package outage

import (
	"slices"
	"sort"
	"time"
)

// Timeline is the ordered event log of one address.
type Timeline struct {
	// Events are ordered by RecordedAt and only ever appended to.
	Events []Event `json:"events"`
}

// History maps an address to its timeline. Timelines are created lazily and
// never removed or rewritten; bounded views must be filtered at read time.
type History map[string]*Timeline

// NewHistory returns an empty history.
func NewHistory() History {
	return make(History)
}

// Events returns a copy of the events recorded for address.
func (h History) Events(address string) []Event {
	timeline := h[address]
	if timeline == nil {
		return nil
	}

	return slices.Clone(timeline.Events)
}

// Append adds the event to the end of the address timeline.
func (h History) Append(address string, event Event) {
	timeline := h[address]
	if timeline == nil {
		timeline = new(Timeline)
		h[address] = timeline
	}

	timeline.Events = append(timeline.Events, event)
}

// Last returns the most recently appended event of the address.
func (h History) Last(address string) (Event, bool) {
	timeline := h[address]
	if timeline == nil || len(timeline.Events) == 0 {
		return Event{}, false
	}

	return timeline.Events[len(timeline.Events)-1], true
}

// LastOfKind scans the address timeline backwards and returns the first event of kind.
func (h History) LastOfKind(address string, kind EventKind) (Event, bool) {
	index := h.lastIndexOfKind(address, kind)
	if index < 0 {
		return Event{}, false
	}

	return h[address].Events[index], true
}

// Addresses returns the known addresses in lexical order.
func (h History) Addresses() []string {
	addresses := make([]string, 0, len(h))
	for address := range h {
		addresses = append(addresses, address)
	}

	sort.Strings(addresses)

	return addresses
}

// Clone returns a deep copy so a poll cycle can work on it and be discarded on failure.
func (h History) Clone() History {
	cloned := make(History, len(h))

	for address, timeline := range h {
		if timeline == nil {
			continue
		}

		cloned[address] = &Timeline{Events: slices.Clone(timeline.Events)}
	}

	return cloned
}

// Settle dates events decoded without "since" or "recorded_at". Clocks are wall
// time in loc. A bare detection clock is paired with the latest date not after
// the detection of the next event, or now for the newest one.
func (h History) Settle(loc *time.Location, now time.Time) {
	for _, timeline := range h {
		if timeline == nil {
			continue
		}

		ref := now.In(loc)

		for i := len(timeline.Events) - 1; i >= 0; i-- {
			event := &timeline.Events[i]

			if event.RecordedAt.IsZero() {
				recordedAt, _ := Anchor(event.detectedClock, ref)
				event.RecordedAt = recordedAt.UTC()
			}

			if event.Since.IsZero() {
				since, _ := Anchor(event.At, event.RecordedAt.In(loc))
				event.Since = since.UTC()
			}

			event.detectedClock = ""
			ref = event.RecordedAt.In(loc)
		}
	}
}

// lastIndexOfKind returns the index of the latest event of kind, or -1.
func (h History) lastIndexOfKind(address string, kind EventKind) int {
	timeline := h[address]
	if timeline == nil {
		return -1
	}

	for i := len(timeline.Events) - 1; i >= 0; i-- {
		if timeline.Events[i].Kind == kind {
			return i
		}
	}

	return -1
}
