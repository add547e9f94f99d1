// Package integration holds end-to-end tests that run the watcher with its
// listeners against fake upstream services.
package integration
