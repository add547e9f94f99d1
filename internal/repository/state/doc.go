// Package state implements persistence for the event History and the
// Rendered message map.
//
// The FileRepository stores each mapping as JSON on disk. Writes go to a
// temporary file in the same directory which is synced and renamed over the
// target, so a crash never leaves a partially written file behind.
//
// The Overlay keeps saves in memory on top of another repository; dry runs
// use it so the stored state stays as the real service left it.
package state
