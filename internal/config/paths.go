package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "mfetch"

// GetAppDir returns the per-user config root based on OS conventions.
// MFETCH_HOME overrides it, which tests and portable installs rely on.
func GetAppDir() string {
	if home := os.Getenv("MFETCH_HOME"); home != "" {
		return home
	}
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(appData, appDirName)
	case "darwin": //MacOS
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default: //Linux
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, _ := os.UserHomeDir()
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, appDirName)
	}
}

// GetRuntimeDir returns the directory for runtime files (the run lock).
// Linux: $XDG_RUNTIME_DIR/mfetch or fallback to GetStateDir() if unset
// macOS: $TMPDIR/mfetch-runtime
// Windows: %TEMP%/mfetch
func GetRuntimeDir() string {
	if os.Getenv("MFETCH_HOME") != "" {
		return filepath.Join(GetAppDir(), "run")
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.TempDir(), appDirName)
	case "darwin":
		return filepath.Join(os.TempDir(), appDirName+"-runtime")
	default: // Linux
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		if runtimeDir != "" {
			return filepath.Join(runtimeDir, appDirName)
		}
		// Fallback to state dir if XDG_RUNTIME_DIR is not set (e.g. docker, headless)
		return GetStateDir()
	}
}

// GetStateDir returns the directory for persistent state (run history DB).
func GetStateDir() string {
	return filepath.Join(GetAppDir(), "state")
}

// GetLogsDir returns the directory for logs.
func GetLogsDir() string {
	return filepath.Join(GetAppDir(), "logs")
}

// GetSettingsPath returns the location of the settings file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// EnsureDirs creates all required directories.
func EnsureDirs() error {
	dirs := []string{GetAppDir(), GetStateDir(), GetLogsDir(), GetRuntimeDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
