// Package common holds helpers shared by the CLI commands.
//
// It provides a lightweight gRPC client for the watcher's manual trigger
// and detects the current system actor (hostname/username) for audit logs.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
