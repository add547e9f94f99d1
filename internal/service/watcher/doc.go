// Package watcher runs the poll cycle of the outage watcher.
//
// A cycle reads the schedule page, classifies every monitored row, advances
// the event history, renders one status message per address and sends it
// when it differs from the last one sent. The history is saved before any
// message goes out; the rendered state is saved after delivery. Cycles are
// serialized by a one-slot semaphore shared by the ticker and the manual
// triggers (gRPC and the Telegram button).
package watcher
