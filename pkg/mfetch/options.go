package mfetch

import (
	"manifest_fetcher/internal/config"
	"manifest_fetcher/internal/download"
)

// ClientOptions configures the embedded fetcher.
type ClientOptions struct {
	Verbose bool
	// Settings supplies output root and network options. When nil the
	// settings file is loaded, falling back to defaults.
	Settings  *config.Settings
	StatePath string
	LogsDir   string
	// Reporter receives per-entry progress. Nil discards it.
	Reporter download.Reporter
	// Verify checks manifest-declared hashes before writing.
	Verify bool
	// DisableHistory skips journaling runs to the state database.
	DisableHistory bool
}
