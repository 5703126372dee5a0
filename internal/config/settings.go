// Package config resolves where mfetch keeps its files and which defaults a
// run starts from. Values layer as: defaults, settings file, .env and
// environment, then command-line flags (applied by the cli package).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultManifestPath = "./modrinth.index.json"
	DefaultOutputRoot   = "./returns"
	DefaultUserAgent    = "mfetch"
	DefaultLogRetention = 5
)

// Environment variables read by ApplyEnv.
const (
	EnvManifest  = "MFETCH_MANIFEST"
	EnvOutput    = "MFETCH_OUTPUT"
	EnvUserAgent = "MFETCH_USER_AGENT"
	EnvTimeout   = "MFETCH_TIMEOUT"
)

type GeneralSettings struct {
	DefaultManifest   string `json:"default_manifest"`
	OutputRoot        string `json:"output_root"`
	LogRetentionCount int    `json:"log_retention_count"`
	History           bool   `json:"history"`
}

type NetworkSettings struct {
	UserAgent string `json:"user_agent"`
	// Timeout of zero means requests may block indefinitely.
	Timeout   Duration `json:"timeout"`
	RateLimit int64    `json:"rate_limit"`
	HTTP3     bool     `json:"http3"`
}

type Settings struct {
	General GeneralSettings `json:"general"`
	Network NetworkSettings `json:"network"`
}

// Duration marshals as a Go duration string ("30s") in settings.json.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			DefaultManifest:   DefaultManifestPath,
			OutputRoot:        DefaultOutputRoot,
			LogRetentionCount: DefaultLogRetention,
			History:           true,
		},
		Network: NetworkSettings{
			UserAgent: DefaultUserAgent,
		},
	}
}

// LoadSettings reads settings.json from the app dir. A missing file yields the
// defaults; a malformed one is an error so the caller can decide to fall back.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

func LoadSettingsFrom(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings writes s to path, creating the parent directory.
func SaveSettings(path string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv loads envFile (if present) into the process environment and then
// overlays MFETCH_* variables onto s.
func ApplyEnv(s *Settings, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv(EnvManifest); v != "" {
		s.General.DefaultManifest = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		s.General.OutputRoot = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		s.Network.UserAgent = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			// Bare numbers are seconds.
			secs, aerr := strconv.Atoi(v)
			if aerr != nil {
				return fmt.Errorf("invalid %s %q: %w", EnvTimeout, v, err)
			}
			d = time.Duration(secs) * time.Second
		}
		s.Network.Timeout = Duration(d)
	}
	return nil
}
