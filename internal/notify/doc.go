// Package notify defines the outbound notification contract of the watcher.
//
// Implementations deliver HTML-formatted text, or an image with an
// HTML-formatted caption, to a single channel. The telegram subpackage talks
// to the Bot API; LogNotifier only logs and is used for dry runs.
package notify
