// Package config defines the gateway configuration, its YAML loader,
// environment overrides and validation.
//
// Limits are read once at startup and are immutable for the lifetime of
// the process; the optional file watcher only announces that a restart is
// needed when the file changes on disk.
package config
