// Package outage contains the core domain of the watcher.
//
// It classifies raw status text into a PowerState, keeps the append-only
// per-address event History, detects transitions (Process) and decides
// whether a rendered message differs from the last one sent (Rendered).
// Everything here is pure data and logic; persistence and transport live
// in the repository and service packages.
package outage
