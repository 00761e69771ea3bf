package main

import "time"

// Default configuration constants for cmd/dupefind. Centralised here so
// that CLI defaults and help text reference a single source of truth.
const (
	// DefaultWatchDebounce is how long the watch command waits after the
	// last file system event before re-scanning.
	DefaultWatchDebounce = 30 * time.Second

	// configDirName is the per-project directory dupefind uses for
	// grammar caches and lock files.
	configDirName = ".dupefind"
)
