// Package config defines the watcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// Secrets (bot token, channel id) may be supplied through the environment
// instead of the file.
package config
