package mfetch

import (
	"manifest_fetcher/internal/config"
	"manifest_fetcher/internal/download"
	"manifest_fetcher/internal/manifest"
	"manifest_fetcher/internal/state"
)

// Re-exported types for the public API to keep internal packages private
// while maintaining a stable surface for consumers.
type Settings = config.Settings

type Manifest = manifest.Manifest
type FileEntry = manifest.FileEntry
type Task = manifest.Task

type Summary = download.Summary
type Result = download.Result
type Outcome = download.Outcome
type Reporter = download.Reporter

type Run = state.Run
type ResultRow = state.ResultRow

const (
	OutcomeSaved        = download.OutcomeSaved
	OutcomeFetchFailed  = download.OutcomeFetchFailed
	OutcomeWriteFailed  = download.OutcomeWriteFailed
	OutcomeVerifyFailed = download.OutcomeVerifyFailed
)

var (
	ErrNotFound    = manifest.ErrNotFound
	ErrMalformed   = manifest.ErrMalformed
	ErrRunNotFound = state.ErrRunNotFound
)
