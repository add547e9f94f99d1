package outage

import "time"

// Row is one line of the outage schedule observed during a poll.
type Row struct {
	// Address is the service location name as printed by the source.
	Address string
	// Category is the outage type (planned, emergency and so on).
	Category string
	// ScheduledStart is the outage start clock, usually "HH:MM".
	ScheduledStart string
	// ScheduledEnd is the expected restoration clock, usually "HH:MM".
	ScheduledEnd string
	// Status is the raw status text used by the Classifier.
	Status string
	// ObservedAt is when the row was read.
	ObservedAt time.Time
}
