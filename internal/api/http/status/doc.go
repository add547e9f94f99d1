// Package status serves the read-only HTTP API of the watcher: liveness,
// Prometheus metrics, the event history of an address and the last sent
// messages.
package status
