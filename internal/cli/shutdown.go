package cli

import (
	"context"
	"fmt"
	"manifest_fetcher/internal/utils"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	globalShutdownOnce sync.Once
	globalShutdownErr  error
	globalShutdownFn   = defaultGlobalShutdown

	// runCancel stops the active batch after its current file.
	runCancel context.CancelFunc
)

func defaultGlobalShutdown() error {
	if runCancel != nil {
		runCancel()
	}
	return nil
}

func executeGlobalShutdown(reason string) error {
	// Ensure shutdown only happens once even if multiple signals arrive.
	globalShutdownOnce.Do(func() {
		utils.Debug("Executing graceful shutdown (%s)", reason)
		globalShutdownErr = globalShutdownFn()
		if globalShutdownErr != nil {
			globalShutdownErr = fmt.Errorf("graceful shutdown failed: %w", globalShutdownErr)
		}
	})
	return globalShutdownErr
}

func resetGlobalShutdownCoordinatorForTest(fn func() error) {
	globalShutdownOnce = sync.Once{}
	globalShutdownErr = nil
	if fn != nil {
		globalShutdownFn = fn
		return
	}
	globalShutdownFn = defaultGlobalShutdown
}

// withSignalCancel returns a context that is cancelled on the first
// SIGINT/SIGTERM. The returned stop func must be called when the run ends.
func withSignalCancel(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	runCancel = cancel

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprint(os.Stderr, signalNotice(sig))
			_ = executeGlobalShutdown(fmt.Sprintf("cli signal: %s", sig))
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		close(done)
		cancel()
	}
}

// signalNotice is printed on the first signal. The in-flight request shares
// the run context, so it is aborted and reported as a fetch failure.
func signalNotice(sig os.Signal) string {
	return fmt.Sprintf("\nReceived signal: %s. Aborting the current download and stopping the run...\n", sig)
}
