package mfetch

import (
	"context"
	"errors"
	"manifest_fetcher/internal/config"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

type testEnv struct {
	srv      *httptest.Server
	requests *atomic.Int32
	dir      string
	settings *config.Settings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MFETCH_HOME", filepath.Join(dir, "home"))

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/a.jar":
			_, _ = w.Write([]byte("alpha"))
		case "/b.jar":
			_, _ = w.Write([]byte("bravo"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	settings := config.DefaultSettings()
	settings.General.OutputRoot = filepath.Join(dir, "returns")
	return &testEnv{srv: srv, requests: &requests, dir: dir, settings: settings}
}

func (e *testEnv) writeManifest(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(e.dir, "modrinth.index.json")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFetchScenario(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeManifest(t, `{"files":[`+
		`{"path":"mods/a.jar","downloads":["`+env.srv.URL+`/a.jar"]},`+
		`{"path":"mods/b.jar","downloads":["`+env.srv.URL+`/b.jar"]}]}`)

	events := make(chan any, 16)
	client, err := NewClient(&ClientOptions{Settings: env.settings, Reporter: ChannelReporter{C: events}})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Shutdown()

	summary, err := client.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if summary.Saved != 2 || summary.Total != 2 {
		t.Fatalf("Expected 2/2, got %d/%d", summary.Saved, summary.Total)
	}
	for _, name := range []string{"a.jar", "b.jar"} {
		if _, err := os.Stat(filepath.Join(env.settings.General.OutputRoot, "mods", name)); err != nil {
			t.Errorf("Expected %s on disk: %v", name, err)
		}
	}

	close(events)
	var last any
	saving := 0
	for ev := range events {
		if _, ok := ev.(SavingMsg); ok {
			saving++
		}
		last = ev
	}
	if saving != 2 {
		t.Errorf("Expected 2 saving events, got %d", saving)
	}
	if s, ok := last.(SummaryMsg); !ok || s.Saved != 2 || s.Total != 2 {
		t.Errorf("Expected final SummaryMsg 2/2, got %#v", last)
	}

	runs, err := client.History(0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Saved != 2 {
		t.Fatalf("Expected one recorded run with 2 saved, got %+v", runs)
	}
	_, rows, err := client.RunResults(runs[0].ID)
	if err != nil {
		t.Fatalf("RunResults failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "a.jar" {
		t.Errorf("Unexpected results: %+v", rows)
	}
}

func TestFetchMissingManifestMakesNoRequests(t *testing.T) {
	env := newTestEnv(t)
	client, err := NewClient(&ClientOptions{Settings: env.settings})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Shutdown()

	_, err = client.Fetch(context.Background(), filepath.Join(env.dir, "nope.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if env.requests.Load() != 0 {
		t.Errorf("Expected no HTTP requests, got %d", env.requests.Load())
	}
}

func TestFetchMalformedManifestMakesNoRequests(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeManifest(t, `{"files": [{"path": "mods/a.jar", "downloads": ["`+env.srv.URL+`/a.jar"]}`)

	client, err := NewClient(&ClientOptions{Settings: env.settings})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Shutdown()

	_, err = client.Fetch(context.Background(), path)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
	if env.requests.Load() != 0 {
		t.Errorf("Expected no HTTP requests, got %d", env.requests.Load())
	}
}

func TestFetchWithoutHistory(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeManifest(t, `{"files":[{"path":"a.jar","downloads":["`+env.srv.URL+`/a.jar"]}]}`)

	client, err := NewClient(&ClientOptions{Settings: env.settings, DisableHistory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Shutdown()

	if _, err := client.Fetch(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	runs, err := client.History(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected no runs recorded, got %d", len(runs))
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	client, err := NewClient(&ClientOptions{Settings: env.settings})
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Shutdown(); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
	if err := client.Shutdown(); err != nil {
		t.Errorf("unexpected second shutdown error: %v", err)
	}
	var nilClient *Client
	if err := nilClient.Shutdown(); err != nil {
		t.Errorf("unexpected error on nil client: %v", err)
	}
}
