package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"manifest_fetcher/internal/manifest"
	"manifest_fetcher/internal/utils"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type plainClient struct{ c *http.Client }

func (p plainClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return p.c.Do(req)
}

func (plainClient) Body(r io.Reader) io.Reader { return r }

type recordingReporter struct {
	lines []string
	saved int
	total int
}

func (r *recordingReporter) FetchFailed(name string, err error) {
	r.lines = append(r.lines, fmt.Sprintf("fetch-failed %s: %v", name, err))
}

func (r *recordingReporter) Saving(name string, status int) {
	r.lines = append(r.lines, fmt.Sprintf("saving %d %s", status, name))
}

func (r *recordingReporter) SaveFailed(name string, err error) {
	r.lines = append(r.lines, fmt.Sprintf("save-failed %s: %v", name, err))
}

func (r *recordingReporter) VerifyFailed(name string, err error) {
	r.lines = append(r.lines, fmt.Sprintf("verify-failed %s: %v", name, err))
}

func (r *recordingReporter) Summary(saved, total int) {
	r.saved, r.total = saved, total
}

type sliceRecorder struct{ results []Result }

func (s *sliceRecorder) Record(r Result) { s.results = append(s.results, r) }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a.jar", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("alpha"))
	})
	mux.HandleFunc("/b.jar", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("bravo"))
	})
	mux.HandleFunc("/created.jar", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	})
	mux.HandleFunc("/gone.jar", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/broken.jar", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func workingSet(files ...manifest.FileEntry) *manifest.WorkingSet {
	return manifest.BuildWorkingSet(&manifest.Manifest{Files: files})
}

func entry(path string, urls ...string) manifest.FileEntry {
	if urls == nil {
		urls = []string{}
	}
	return manifest.FileEntry{Path: path, Downloads: urls}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
	return string(data)
}

func TestRunSavesAll(t *testing.T) {
	srv := newServer(t)
	root := filepath.Join(t.TempDir(), "returns")
	rep := &recordingReporter{}

	f := NewFetcher(plainClient{srv.Client()}, root, rep)
	sum := f.Run(context.Background(), workingSet(
		entry("mods/a.jar", srv.URL+"/a.jar"),
		entry("mods/b.jar", srv.URL+"/b.jar"),
	))

	if sum.Saved != 2 || sum.Total != 2 {
		t.Fatalf("Expected 2/2, got %d/%d", sum.Saved, sum.Total)
	}
	if rep.saved != 2 || rep.total != 2 {
		t.Errorf("Expected reporter summary 2/2, got %d/%d", rep.saved, rep.total)
	}
	if got := readFile(t, filepath.Join(root, "mods", "a.jar")); got != "alpha" {
		t.Errorf("Expected alpha, got %q", got)
	}
	if got := readFile(t, filepath.Join(root, "mods", "b.jar")); got != "bravo" {
		t.Errorf("Expected bravo, got %q", got)
	}
	if rep.lines[0] != "saving 200 a.jar" {
		t.Errorf("Expected first line 'saving 200 a.jar', got %q", rep.lines[0])
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()
	rep := &recordingReporter{}

	f := NewFetcher(plainClient{srv.Client()}, root, rep)
	sum := f.Run(context.Background(), workingSet(
		entry("mods/a.jar", srv.URL+"/a.jar"),
		entry("mods/down.jar", "http://127.0.0.1:1/down.jar"),
		entry("mods/b.jar", srv.URL+"/b.jar"),
	))

	if sum.Saved != 2 || sum.Total != 3 {
		t.Fatalf("Expected 2/3, got %d/%d", sum.Saved, sum.Total)
	}
	if sum.Results[1].Outcome != OutcomeFetchFailed {
		t.Errorf("Expected fetch failure for unreachable entry, got %v", sum.Results[1].Outcome)
	}
	if _, err := os.Stat(filepath.Join(root, "mods", "b.jar")); err != nil {
		t.Errorf("Expected entry after the failure to be saved: %v", err)
	}
}

func TestRunHTTPErrorStatus(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()
	rep := &recordingReporter{}

	f := NewFetcher(plainClient{srv.Client()}, root, rep)
	sum := f.Run(context.Background(), workingSet(
		entry("mods/gone.jar", srv.URL+"/gone.jar"),
		entry("mods/broken.jar", srv.URL+"/broken.jar"),
	))

	if sum.Saved != 0 || sum.Total != 2 {
		t.Fatalf("Expected 0/2, got %d/%d", sum.Saved, sum.Total)
	}
	want404 := "404 Client Error: Not Found for url: " + srv.URL + "/gone.jar"
	if !strings.Contains(rep.lines[0], want404) {
		t.Errorf("Expected %q in %q", want404, rep.lines[0])
	}
	if !strings.Contains(rep.lines[1], "500 Server Error: Internal Server Error") {
		t.Errorf("Expected server error text, got %q", rep.lines[1])
	}

	var httpErr *HTTPError
	if !errors.As(sum.Results[0].Err, &httpErr) || httpErr.StatusCode != 404 {
		t.Errorf("Expected HTTPError 404, got %v", sum.Results[0].Err)
	}
	if _, err := os.Stat(filepath.Join(root, "mods", "gone.jar")); !os.IsNotExist(err) {
		t.Errorf("Expected nothing written for HTTP error, stat err = %v", err)
	}
}

func TestRunNonOKStatusIsStillSaved(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()
	rep := &recordingReporter{}

	f := NewFetcher(plainClient{srv.Client()}, root, rep)
	sum := f.Run(context.Background(), workingSet(entry("created.jar", srv.URL+"/created.jar")))

	if sum.Saved != 1 {
		t.Fatalf("Expected 201 response to be saved, got %d saved", sum.Saved)
	}
	if sum.Results[0].StatusCode != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", sum.Results[0].StatusCode)
	}
	if rep.lines[0] != "saving 201 created.jar" {
		t.Errorf("Expected 'saving 201 created.jar', got %q", rep.lines[0])
	}
}

func TestRunNoURL(t *testing.T) {
	srv := newServer(t)
	rep := &recordingReporter{}

	f := NewFetcher(plainClient{srv.Client()}, t.TempDir(), rep)
	sum := f.Run(context.Background(), workingSet(
		entry("mods/empty.jar"),
		entry("mods/a.jar", srv.URL+"/a.jar"),
	))

	if sum.Saved != 1 || sum.Total != 2 {
		t.Fatalf("Expected 1/2, got %d/%d", sum.Saved, sum.Total)
	}
	if !errors.Is(sum.Results[0].Err, ErrNoURL) {
		t.Errorf("Expected ErrNoURL, got %v", sum.Results[0].Err)
	}
}

func TestRunLastWriteWins(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()

	f := NewFetcher(plainClient{srv.Client()}, root, nil)
	sum := f.Run(context.Background(), workingSet(
		entry("a/x.jar", srv.URL+"/a.jar"),
		entry("b/x.jar", srv.URL+"/b.jar"),
	))

	if sum.Total != 1 || sum.Saved != 1 {
		t.Fatalf("Expected 1/1 after collision, got %d/%d", sum.Saved, sum.Total)
	}
	if got := readFile(t, filepath.Join(root, "b", "x.jar")); got != "bravo" {
		t.Errorf("Expected later entry to be fetched, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "x.jar")); !os.IsNotExist(err) {
		t.Errorf("Expected earlier entry to be dropped, stat err = %v", err)
	}
}

func TestRunOverwritesExisting(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()
	target := filepath.Join(root, "mods", "a.jar")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("stale content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(plainClient{srv.Client()}, root, nil)
	f.Run(context.Background(), workingSet(entry("mods/a.jar", srv.URL+"/a.jar")))

	if got := readFile(t, target); got != "alpha" {
		t.Errorf("Expected file to be overwritten, got %q", got)
	}
}

func TestRunRejectsEscapingPath(t *testing.T) {
	srv := newServer(t)
	root := filepath.Join(t.TempDir(), "returns")
	rep := &recordingReporter{}

	f := NewFetcher(plainClient{srv.Client()}, root, rep)
	sum := f.Run(context.Background(), workingSet(entry("../escape.jar", srv.URL+"/a.jar")))

	if sum.Results[0].Outcome != OutcomeWriteFailed {
		t.Fatalf("Expected write failure, got %v", sum.Results[0].Outcome)
	}
	if !strings.HasPrefix(rep.lines[len(rep.lines)-1], "save-failed escape.jar") {
		t.Errorf("Expected save failure line, got %v", rep.lines)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.jar")); !os.IsNotExist(err) {
		t.Errorf("Expected nothing written outside root, stat err = %v", err)
	}
}

func TestRunWriteFailure(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()
	// A regular file where a directory is needed.
	if err := os.WriteFile(filepath.Join(root, "mods"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(plainClient{srv.Client()}, root, nil)
	sum := f.Run(context.Background(), workingSet(
		entry("mods/a.jar", srv.URL+"/a.jar"),
		entry("b.jar", srv.URL+"/b.jar"),
	))

	if sum.Saved != 1 || sum.Total != 2 {
		t.Fatalf("Expected 1/2, got %d/%d", sum.Saved, sum.Total)
	}
	var pe *PersistError
	if !errors.As(sum.Results[0].Err, &pe) {
		t.Errorf("Expected PersistError, got %v", sum.Results[0].Err)
	}
}

func TestRunVerify(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()
	sum1 := sha1.Sum([]byte("alpha"))

	good := entry("good/a.jar", srv.URL+"/a.jar")
	good.Hashes = map[string]string{"sha1": hex.EncodeToString(sum1[:])}
	bad := entry("bad/b.jar", srv.URL+"/b.jar")
	bad.Hashes = map[string]string{"sha1": "0000"}

	rep := &recordingReporter{}
	f := NewFetcher(plainClient{srv.Client()}, root, rep)
	f.Verify = true
	sum := f.Run(context.Background(), workingSet(good, bad))

	if sum.Saved != 1 {
		t.Fatalf("Expected only the matching entry to be saved, got %d", sum.Saved)
	}
	if sum.Results[1].Outcome != OutcomeVerifyFailed || !errors.Is(sum.Results[1].Err, ErrChecksumMismatch) {
		t.Errorf("Expected checksum mismatch, got %v %v", sum.Results[1].Outcome, sum.Results[1].Err)
	}
	if _, err := os.Stat(filepath.Join(root, "bad", "b.jar")); !os.IsNotExist(err) {
		t.Errorf("Expected mismatched file not to be written, stat err = %v", err)
	}
}

func TestVerifyPrefersSHA512(t *testing.T) {
	task := manifest.Task{Name: "a.jar", Hashes: map[string]string{
		"sha1":   "wrong",
		"sha512": "also-wrong",
	}}
	var ve *VerifyError
	if err := verifyHashes(task, []byte("alpha")); !errors.As(err, &ve) || ve.Algo != "sha512" {
		t.Errorf("Expected sha512 to be checked, got %v", err)
	}
	if err := verifyHashes(manifest.Task{Name: "x"}, []byte("alpha")); err != nil {
		t.Errorf("Expected no error without hashes, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &sliceRecorder{}
	f := NewFetcher(plainClient{srv.Client()}, t.TempDir(), nil)
	f.Recorder = rec
	sum := f.Run(ctx, workingSet(
		entry("a.jar", srv.URL+"/a.jar"),
		entry("b.jar", srv.URL+"/b.jar"),
	))

	if !sum.Interrupted {
		t.Error("Expected summary to be marked interrupted")
	}
	if sum.Saved != 0 || sum.Total != 2 || len(sum.Results) != 0 {
		t.Errorf("Expected no work after cancellation, got %d/%d with %d results", sum.Saved, sum.Total, len(sum.Results))
	}
	if len(rec.results) != 0 {
		t.Errorf("Expected nothing recorded, got %d", len(rec.results))
	}
}

func TestRunRecordsResults(t *testing.T) {
	srv := newServer(t)
	rec := &sliceRecorder{}
	f := NewFetcher(plainClient{srv.Client()}, t.TempDir(), nil)
	f.Recorder = rec
	f.Run(context.Background(), workingSet(
		entry("a.jar", srv.URL+"/a.jar"),
		entry("gone.jar", srv.URL+"/gone.jar"),
	))

	if len(rec.results) != 2 {
		t.Fatalf("Expected 2 recorded results, got %d", len(rec.results))
	}
	if rec.results[0].Bytes != 5 || rec.results[0].OutputPath == "" {
		t.Errorf("Expected bytes and path on saved result, got %+v", rec.results[0])
	}
	if rec.results[1].StatusCode != 404 {
		t.Errorf("Expected status 404 recorded, got %d", rec.results[1].StatusCode)
	}
}

func TestRunEmptyPathFailsOnlyThatEntry(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()

	m, err := manifest.Parse([]byte(`{"files":[`+
		`{"path":"mods/a.jar","downloads":["`+srv.URL+`/a.jar"]},`+
		`{"path":"","downloads":["`+srv.URL+`/b.jar"]}]}`), manifest.FormatJSON, "index.json")
	if err != nil {
		t.Fatalf("Expected manifest with an empty path to load, got %v", err)
	}

	f := NewFetcher(plainClient{srv.Client()}, root, nil)
	sum := f.Run(context.Background(), manifest.BuildWorkingSet(m))

	if sum.Saved != 1 || sum.Total != 2 {
		t.Fatalf("Expected 1/2, got %d/%d", sum.Saved, sum.Total)
	}
	var pe *PersistError
	if !errors.As(sum.Results[1].Err, &pe) || !errors.Is(sum.Results[1].Err, utils.ErrUnsafePath) {
		t.Errorf("Expected PersistError wrapping ErrUnsafePath, got %v", sum.Results[1].Err)
	}
	if got := readFile(t, filepath.Join(root, "mods", "a.jar")); got != "alpha" {
		t.Errorf("Expected sibling entry to be saved, got %q", got)
	}
}
