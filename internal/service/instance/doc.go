// Package instance keeps two watcher processes from writing the same state
// files. The lock is a PID file checked against the live process table.
package instance
