// Package version exposes build metadata of outage-watch.
//
// Version, Commit and BuildTime are set through -ldflags at build time.
package version
