// Package metrics holds the Prometheus collectors of the watcher on a
// private registry, so tests can build as many instances as they need.
package metrics
