package download

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoURL is reported for entries whose downloads list is empty.
	ErrNoURL = errors.New("no download URL")
	// ErrChecksumMismatch is wrapped by VerifyError.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// HTTPError is a response whose status code signals failure (4xx/5xx).
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	kind := "Client Error"
	if e.StatusCode >= 500 {
		kind = "Server Error"
	}
	reason := strings.TrimSpace(strings.TrimPrefix(e.Status, fmt.Sprint(e.StatusCode)))
	if reason == "" {
		reason = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%d %s: %s for url: %s", e.StatusCode, kind, reason, e.URL)
}

// isHTTPError reports whether a status code should fail the entry. 1xx-3xx
// responses are accepted even though only 200 is reported as green.
func isHTTPError(code int) bool {
	return code >= 400 && code < 600
}

// FetchError covers everything between issuing the request and holding the
// full body: missing URL, transport failure, HTTP error status, body read.
type FetchError struct {
	Name string
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistError covers directory creation and file writes.
type PersistError struct {
	Name string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to save %s: %v", e.Name, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// VerifyError is a digest mismatch against a manifest-declared hash.
type VerifyError struct {
	Name string
	Algo string
	Want string
	Got  string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s: %s expected %s, got %s", ErrChecksumMismatch, e.Algo, e.Want, e.Got)
}

func (e *VerifyError) Unwrap() error { return ErrChecksumMismatch }
