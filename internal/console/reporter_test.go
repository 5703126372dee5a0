package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestReporterLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.FetchFailed("a.jar", errors.New("404 Client Error: Not Found for url: http://x/a.jar"))
	r.Saving("b.jar", 200)
	r.SaveFailed("c.jar", errors.New("permission denied"))
	r.VerifyFailed("d.jar", errors.New("checksum mismatch"))
	r.Summary(1, 4)

	want := strings.Join([]string{
		"[ERR] Failed to fetch a.jar: 404 Client Error: Not Found for url: http://x/a.jar",
		"[200] Saving b.jar",
		"[ERR] Failed to save c.jar: permission denied",
		"[ERR] Checksum mismatch for d.jar: checksum mismatch",
		"Saved 1/4 files",
	}, "\n") + "\n"

	if buf.String() != want {
		t.Errorf("Expected:\n%s\nGot:\n%s", want, buf.String())
	}
}

func TestSavingColorDependsOnExactStatus(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	r.Saving("ok.jar", 200)
	green := buf.String()
	buf.Reset()
	r.Saving("created.jar", 201)
	red := buf.String()

	if !strings.HasPrefix(green, "\x1b[32m[200]") {
		t.Errorf("Expected green status for 200, got %q", green)
	}
	if !strings.HasPrefix(red, "\x1b[31m[201]") {
		t.Errorf("Expected red status for 201, got %q", red)
	}
	if !strings.Contains(red, "\x1b[33mcreated.jar") {
		t.Errorf("Expected yellow name, got %q", red)
	}
}

func TestLoadFailed(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, true).LoadFailed(errors.New("manifest not found: ./modrinth.index.json"))
	if buf.String() != "[ERR] manifest not found: ./modrinth.index.json\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}
