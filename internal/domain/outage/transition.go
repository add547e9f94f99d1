package outage

import "time"

// Observation is the classified view of one row at poll time.
type Observation struct {
	// Address is the monitored address.
	Address string
	// State is the classifier verdict.
	State PowerState
	// ScheduledStart is the outage start clock reported by the source.
	ScheduledStart string
	// ScheduledEnd is the restoration clock reported by the source.
	ScheduledEnd string
	// Now is the poll time.
	Now time.Time
}

// Interval is a contiguous window in one power state.
type Interval struct {
	// State of the address during the window.
	State PowerState
	// Since is when the window started.
	Since time.Time
	// SinceClock is the boundary clock as reported by the source.
	SinceClock string
	// Until is when the window ended, or the poll time for the current window.
	Until time.Time
	// UntilClock is the clock of Until.
	UntilClock string
	// Elapsed is Until minus Since, never negative.
	Elapsed time.Duration
}

// Narrative is what the engine knows about an address after one observation.
type Narrative struct {
	// Address is the monitored address.
	Address string
	// State is the current classified state.
	State PowerState
	// Appended is the event added by this observation, nil when suppressed.
	Appended *Event
	// Current describes the ongoing window.
	Current Interval
	// Previous describes the window before the current one, nil when unknown.
	Previous *Interval
}

// Process applies an observation to the history and returns the narrative.
//
// A boundary event is appended only when the latest event differs from it:
// the source repeats a still-open outage on every poll, and appending again
// would fabricate transitions. This keeps at most one append per window.
//
// A boundary clock that would anchor before the latest event is a scheduled
// time still ahead of the poll, e.g. power restored before the announced end.
// Such a window starts at the poll time instead.
func Process(history History, obs Observation) Narrative {
	kind := KindFor(obs.State)

	boundary := obs.ScheduledEnd
	if obs.State == WithoutPower {
		boundary = obs.ScheduledStart
	}

	narrative := Narrative{
		Address: obs.Address,
		State:   obs.State,
	}

	candidate := NewEvent(kind, boundary, obs.Now)

	if last, ok := history.Last(obs.Address); !ok || !last.SameBoundary(candidate) {
		if ok && candidate.Since.Before(last.Since) {
			candidate.Since = obs.Now.UTC()
		}

		history.Append(obs.Address, candidate)
		narrative.Appended = &candidate
	}

	events := history[obs.Address].Events
	currentIndex := history.lastIndexOfKind(obs.Address, kind)
	current := events[currentIndex]

	loc := obs.Now.Location()
	narrative.Current = newInterval(obs.State, current.Since, current.Clock(loc), obs.Now, obs.Now.Format(ClockLayout))

	previousIndex := history.lastIndexOfKind(obs.Address, kind.Opposite())
	if previousIndex < 0 || previousIndex > currentIndex {
		return narrative
	}

	// Everything after the latest opposite event is of the current kind, so
	// the previous window ends at the event right after it.
	previous, opened := events[previousIndex], events[previousIndex+1]
	interval := newInterval(previous.Kind.state(), previous.Since, previous.Clock(loc), opened.Since, opened.Clock(loc))
	narrative.Previous = &interval

	return narrative
}

// newInterval builds an interval with a clamped elapsed duration.
func newInterval(state PowerState, since time.Time, sinceClock string, until time.Time, untilClock string) Interval {
	elapsed := until.Sub(since)
	if elapsed < 0 {
		elapsed = 0
	}

	return Interval{
		State:      state,
		Since:      since,
		SinceClock: sinceClock,
		Until:      until,
		UntilClock: untilClock,
		Elapsed:    elapsed,
	}
}

// state returns the power state an event of kind k opens.
func (k EventKind) state() PowerState {
	if k == EventOff {
		return WithoutPower
	}

	return WithPower
}
