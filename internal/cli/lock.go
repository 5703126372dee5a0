package cli

import (
	"fmt"
	"manifest_fetcher/internal/config"
	"manifest_fetcher/internal/utils"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var instanceLock *flock.Flock

// AcquireLock takes the run lock in the runtime dir. It reports false when
// another mfetch process holds it.
func AcquireLock() (bool, error) {
	dir := config.GetRuntimeDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create runtime dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "mfetch.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return false, nil
	}

	instanceLock = lock
	utils.Debug("Acquired run lock %s", lock.Path())
	return true, nil
}

// ReleaseLock drops the run lock if this process holds it.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}
