package utils

import (
	"fmt"
	"io/fs"
	"log/slog"
	"manifest_fetcher/internal/config"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

var (
	debugFile   *os.File
	debugLogger atomic.Pointer[slog.Logger]
	debugOnce   sync.Once
	logsDir     atomic.Value // string
	verbose     atomic.Bool
)

func ConfigureDebug(dir string) {
	logsDir.Store(dir)
}

// SetVerbose enables or disables verbose logging
func SetVerbose(enabled bool) {
	verbose.Store(enabled)
}

// IsVerbose returns true if verbose logging is enabled
func IsVerbose() bool {
	return verbose.Load()
}

func currentLogsDir() string {
	if val := logsDir.Load(); val != nil {
		if dir := val.(string); dir != "" {
			return dir
		}
	}
	return config.GetLogsDir()
}

// Logger returns the debug logger, opening the log file on first use.
// It returns nil when verbose logging is off or the file cannot be created.
func Logger() *slog.Logger {
	if !IsVerbose() {
		return nil
	}
	debugOnce.Do(func() {
		dir := currentLogsDir()
		_ = os.MkdirAll(dir, 0755)
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))))
		if err != nil {
			return
		}
		debugFile = f
		debugLogger.Store(slog.New(tint.NewHandler(f, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    true,
		})))
	})
	return debugLogger.Load()
}

func Debug(format string, args ...any) {
	if l := Logger(); l != nil {
		l.Debug(fmt.Sprintf(format, args...))
	}
}

// CloseDebug flushes and closes the debug log file.
func CloseDebug() {
	debugLogger.Store(nil)
	if debugFile != nil {
		_ = debugFile.Sync()
		_ = debugFile.Close()
		debugFile = nil
	}
}

// CleanupLogs removes old log files, keeping only the most recent retentionCount files
func CleanupLogs(retentionCount int) {
	if retentionCount < 0 {
		return // Keep all logs
	}

	val := logsDir.Load()
	if val == nil {
		return
	}
	dir := val.(string)

	if dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logs []fs.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "debug-") && strings.HasSuffix(entry.Name(), ".log") {
			logs = append(logs, entry)
		}
	}

	// debug-YYYYMMDD-HHMMSS.log: reverse alphabetical is newest first.
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Name() > logs[j].Name()
	})

	if len(logs) <= retentionCount {
		return
	}

	for _, log := range logs[retentionCount:] {
		_ = os.Remove(filepath.Join(dir, log.Name()))
	}
}
