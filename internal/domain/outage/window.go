package outage

import "time"

// VisualizationSpan is the trailing window charted for an address.
const VisualizationSpan = 24 * time.Hour

// Point is one sample of the binary outage series: 1 when power went off, 0 when it came back.
type Point struct {
	At    time.Time
	Value int
}

// Recent returns the events recorded within (now-span, now], in order.
func Recent(events []Event, now time.Time, span time.Duration) []Event {
	from := now.Add(-span)

	var recent []Event

	for _, event := range events {
		if !event.RecordedAt.After(from) || event.RecordedAt.After(now) {
			continue
		}

		recent = append(recent, event)
	}

	return recent
}

// Window maps events recorded within (now-span, now] to a binary series.
// It returns nil when nothing falls inside the window.
func Window(events []Event, now time.Time, span time.Duration) []Point {
	var points []Point

	for _, event := range Recent(events, now, span) {
		value := 0
		if event.Kind == EventOff {
			value = 1
		}

		points = append(points, Point{At: event.RecordedAt, Value: value})
	}

	return points
}
