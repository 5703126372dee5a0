// Package download runs the bulk fetch-and-persist loop: one GET per task,
// body written under the output root, failures isolated per entry.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"manifest_fetcher/internal/manifest"
	"manifest_fetcher/internal/utils"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads a working set sequentially.
type Fetcher struct {
	Client     Client
	OutputRoot string
	Reporter   Reporter
	// Recorder is optional.
	Recorder Recorder
	// Verify checks manifest-declared hashes before writing.
	Verify bool
}

func NewFetcher(client Client, outputRoot string, reporter Reporter) *Fetcher {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Fetcher{
		Client:     client,
		OutputRoot: outputRoot,
		Reporter:   reporter,
	}
}

// Run fetches every task in iteration order and reports saved/total. A
// cancelled context stops the loop before the next task; the total still
// counts every task in the working set.
func (f *Fetcher) Run(ctx context.Context, ws *manifest.WorkingSet) *Summary {
	tasks := ws.Tasks()
	summary := &Summary{Total: len(tasks), Results: make([]Result, 0, len(tasks))}

	utils.Debug("Fetcher: %d tasks into %s", len(tasks), f.OutputRoot)
	start := time.Now()

	for _, task := range tasks {
		if ctx.Err() != nil {
			summary.Interrupted = true
			utils.Debug("Fetcher: interrupted, %d tasks not started", summary.Total-len(summary.Results))
			break
		}

		res := f.fetchOne(ctx, task)
		if res.Outcome == OutcomeSaved {
			summary.Saved++
		}
		summary.Results = append(summary.Results, res)

		if f.Recorder != nil {
			f.Recorder.Record(res)
		}
	}

	utils.Debug("Fetcher: saved %d/%d in %v", summary.Saved, summary.Total, time.Since(start))
	f.Reporter.Summary(summary.Saved, summary.Total)
	return summary
}

func (f *Fetcher) fetchOne(ctx context.Context, task manifest.Task) (res Result) {
	res = Result{Task: task}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	fail := func(outcome Outcome, err error) Result {
		res.Outcome = outcome
		res.Err = err
		var fe *FetchError
		var pe *PersistError
		switch {
		case errors.As(err, &fe):
			f.Reporter.FetchFailed(task.Name, fe.Err)
		case errors.As(err, &pe):
			f.Reporter.SaveFailed(task.Name, pe.Err)
		default:
			f.Reporter.VerifyFailed(task.Name, err)
		}
		utils.Debug("Fetcher: %s %s: %v", task.Name, outcome, err)
		return res
	}

	if task.URL == "" {
		return fail(OutcomeFetchFailed, &FetchError{Name: task.Name, Err: ErrNoURL})
	}

	utils.Debug("Fetcher: GET %s", task.URL)
	resp, err := f.Client.Get(ctx, task.URL)
	if err != nil {
		return fail(OutcomeFetchFailed, &FetchError{Name: task.Name, URL: task.URL, Err: err})
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if isHTTPError(resp.StatusCode) {
		finalURL := task.URL
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: finalURL}
		return fail(OutcomeFetchFailed, &FetchError{Name: task.Name, URL: task.URL, Err: httpErr})
	}

	// The whole body is held before anything touches disk, so a dropped
	// connection is a fetch failure rather than a truncated file.
	body, err := io.ReadAll(f.Client.Body(resp.Body))
	if err != nil {
		return fail(OutcomeFetchFailed, &FetchError{Name: task.Name, URL: task.URL, Err: err})
	}

	f.Reporter.Saving(task.Name, resp.StatusCode)

	info := utils.DescribeContent(resp.Header, body)
	res.Kind = info.Kind
	utils.Debug("Fetcher: %s status=%d bytes=%d declared=%q sniffed=%q kind=%q suggested=%q",
		task.Name, resp.StatusCode, len(body), info.DeclaredType, info.SniffedType, info.Kind, info.SuggestedName)
	if task.Size > 0 && int64(len(body)) != task.Size {
		utils.Debug("Fetcher: %s size %d differs from declared %d", task.Name, len(body), task.Size)
	}

	if f.Verify {
		if err := verifyHashes(task, body); err != nil {
			return fail(OutcomeVerifyFailed, err)
		}
	}

	outPath, err := utils.JoinUnderRoot(f.OutputRoot, task.Path)
	if err != nil {
		return fail(OutcomeWriteFailed, &PersistError{Name: task.Name, Path: task.Path, Err: err})
	}
	res.OutputPath = outPath

	if err := writeFile(outPath, body); err != nil {
		return fail(OutcomeWriteFailed, &PersistError{Name: task.Name, Path: outPath, Err: err})
	}

	res.Outcome = OutcomeSaved
	res.Bytes = int64(len(body))
	return res
}

// writeFile creates missing parent directories and overwrites path. A
// failure part way through may leave a truncated file behind.
func writeFile(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return err
	}
	return nil
}
