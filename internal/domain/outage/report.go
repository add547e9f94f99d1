package outage

import "time"

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	// CycleID correlates logs, feed records and the trigger reply.
	CycleID string
	// StartedAt is the poll time of the cycle.
	StartedAt time.Time
	// Duration is how long the cycle took.
	Duration time.Duration
	// Rows is the number of monitored rows read from the source.
	Rows int
	// Appended is the number of events added to the history.
	Appended int
	// Notified is the number of messages delivered.
	Notified int
	// Failed is the number of addresses whose processing or delivery failed.
	Failed int
}
