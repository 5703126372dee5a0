package download

import (
	"context"
	"io"
	"manifest_fetcher/internal/manifest"
	"net/http"
	"time"
)

// Outcome classifies a fetch result.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeFetchFailed
	OutcomeWriteFailed
	// OutcomeVerifyFailed only occurs when verification is enabled.
	OutcomeVerifyFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeWriteFailed:
		return "write_failed"
	case OutcomeVerifyFailed:
		return "verify_failed"
	default:
		return "unknown"
	}
}

// Result is what happened to one task.
type Result struct {
	Task       manifest.Task
	Outcome    Outcome
	StatusCode int
	Bytes      int64
	Kind       string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// Summary is the outcome of a batch.
type Summary struct {
	Saved   int
	Total   int
	Results []Result
	// Interrupted is set when the context was cancelled before every task ran.
	Interrupted bool
}

// Client is the HTTP surface the fetcher needs. *greenhttp.HTTPClient
// satisfies it.
type Client interface {
	Get(ctx context.Context, url string) (*http.Response, error)
	Body(r io.Reader) io.Reader
}

// Reporter renders per-entry progress for a human.
type Reporter interface {
	FetchFailed(name string, err error)
	Saving(name string, statusCode int)
	SaveFailed(name string, err error)
	VerifyFailed(name string, err error)
	Summary(saved, total int)
}

// Recorder receives every result, e.g. to journal it.
type Recorder interface {
	Record(Result)
}

type nopReporter struct{}

func (nopReporter) FetchFailed(string, error)  {}
func (nopReporter) Saving(string, int)         {}
func (nopReporter) SaveFailed(string, error)   {}
func (nopReporter) VerifyFailed(string, error) {}
func (nopReporter) Summary(int, int)           {}
