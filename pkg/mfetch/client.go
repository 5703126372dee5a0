// Package mfetch is the embedding API: load a manifest, fetch every file it
// lists under the output root, and read back run history.
package mfetch

import (
	"context"
	"errors"
	"manifest_fetcher/greenhttp"
	"manifest_fetcher/internal/config"
	"manifest_fetcher/internal/download"
	"manifest_fetcher/internal/manifest"
	"manifest_fetcher/internal/state"
	"manifest_fetcher/internal/utils"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Client owns the shared HTTP client and the process-wide state database.
type Client struct {
	http     *greenhttp.HTTPClient
	loader   *manifest.Loader
	reporter download.Reporter

	settings  *config.Settings
	verify    bool
	history   bool
	statePath string
	logsDir   string

	closeOnce sync.Once
}

// NewClient initializes logging, state storage and the HTTP client.
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}
	settings := resolveSettings(opts)
	if settings == nil {
		return nil, errors.New("settings not available")
	}

	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	logsDir := config.GetLogsDir()
	if opts.LogsDir != "" {
		logsDir = opts.LogsDir
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, err
	}

	// Debug and verbosity are process-wide switches; configure them once here.
	utils.ConfigureDebug(logsDir)
	utils.SetVerbose(opts.Verbose)
	utils.CleanupLogs(settings.General.LogRetentionCount)

	statePath := filepath.Join(config.GetStateDir(), "mfetch.db")
	if opts.StatePath != "" {
		statePath = opts.StatePath
	}
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return nil, err
	}
	state.Configure(statePath)

	protocol := greenhttp.ProtocolAuto
	if settings.Network.HTTP3 {
		protocol = greenhttp.ProtocolHTTP3
	}
	httpClient := greenhttp.NewHTTPClient(greenhttp.Options{
		Protocol:  protocol,
		UserAgent: settings.Network.UserAgent,
		Timeout:   time.Duration(settings.Network.Timeout),
		RateLimit: settings.Network.RateLimit,
	})

	utils.Debug("Client ready: output=%s protocol=%s timeout=%v limit=%d history=%v",
		settings.General.OutputRoot, protocol, time.Duration(settings.Network.Timeout),
		settings.Network.RateLimit, settings.General.History && !opts.DisableHistory)

	return &Client{
		http:      httpClient,
		loader:    &manifest.Loader{Client: httpClient},
		reporter:  opts.Reporter,
		settings:  settings,
		verify:    opts.Verify,
		history:   settings.General.History && !opts.DisableHistory,
		statePath: statePath,
		logsDir:   logsDir,
	}, nil
}

// resolveSettings keeps the client usable even when settings are missing
// or fail to load from disk.
func resolveSettings(opts *ClientOptions) *config.Settings {
	if opts.Settings != nil {
		return opts.Settings
	}
	settings, err := config.LoadSettings()
	if err != nil {
		utils.Debug("Failed to load settings, using defaults: %v", err)
		return config.DefaultSettings()
	}
	return settings
}

// Settings returns the effective settings.
func (c *Client) Settings() *Settings {
	if c == nil {
		return nil
	}
	return c.settings
}

// Load reads a manifest from a path or http(s) URL without fetching anything.
func (c *Client) Load(ctx context.Context, location string) (*Manifest, error) {
	if c == nil || c.loader == nil {
		return nil, errors.New("client not initialized")
	}
	return c.loader.Load(ctx, location)
}

// Fetch loads the manifest at location and downloads every file it lists.
// Only manifest errors are returned; per-file failures are reported and
// counted in the summary.
func (c *Client) Fetch(ctx context.Context, location string) (*Summary, error) {
	m, err := c.Load(ctx, location)
	if err != nil {
		return nil, err
	}

	ws := manifest.BuildWorkingSet(m)
	outputRoot := c.settings.General.OutputRoot

	fetcher := download.NewFetcher(c.http, outputRoot, c.reporter)
	fetcher.Verify = c.verify

	runID := ""
	if c.history {
		runID, err = state.BeginRun(location, outputRoot)
		if err != nil {
			utils.Debug("History disabled for this run: %v", err)
		} else {
			fetcher.Recorder = &state.Recorder{RunID: runID}
		}
	}

	summary := fetcher.Run(ctx, ws)

	if runID != "" {
		if err := state.FinishRun(runID, summary); err != nil {
			utils.Debug("Failed to finish run %s: %v", runID, err)
		}
	}
	return summary, nil
}

// History returns recent runs, newest first. limit <= 0 returns all.
func (c *Client) History(limit int) ([]Run, error) {
	if c == nil {
		return nil, errors.New("client not initialized")
	}
	return state.ListRuns(limit)
}

// RunResults returns a run, looked up by id or unique id prefix, and its
// per-entry results.
func (c *Client) RunResults(id string) (Run, []ResultRow, error) {
	if c == nil {
		return Run{}, nil, errors.New("client not initialized")
	}
	run, err := state.GetRun(id)
	if err != nil {
		return Run{}, nil, err
	}
	rows, err := state.RunResults(run.ID)
	return run, rows, err
}

// Shutdown releases the HTTP transport and state database.
// It is safe to call multiple times from different goroutines.
func (c *Client) Shutdown() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		err = c.http.Close()
		state.CloseDB()
		utils.CloseDebug()
	})
	return err
}
