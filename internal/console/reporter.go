// Package console renders fetch progress for a terminal.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Reporter writes one line per event. Each color value wraps only its own
// text, so formatting never leaks into the next write.
type Reporter struct {
	w       io.Writer
	errTag  *color.Color
	ok      *color.Color
	bad     *color.Color
	name    *color.Color
	summary *color.Color
}

// NewReporter writes to w. When noColor is false the fatih/color defaults
// apply, so NO_COLOR and non-terminal output still disable colors.
func NewReporter(w io.Writer, noColor bool) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	r := &Reporter{
		w:       w,
		errTag:  color.New(color.FgRed),
		ok:      color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		name:    color.New(color.FgYellow),
		summary: color.New(color.FgMagenta),
	}
	if noColor {
		for _, c := range []*color.Color{r.errTag, r.ok, r.bad, r.name, r.summary} {
			c.DisableColor()
		}
	}
	return r
}

func (r *Reporter) FetchFailed(name string, err error) {
	r.errTag.Fprint(r.w, "[ERR]")
	fmt.Fprintf(r.w, " Failed to fetch %s: %v\n", name, err)
}

// Saving reports a response that is about to be written. Only a literal
// 200 is green; any other accepted status is red even though it is saved.
func (r *Reporter) Saving(name string, statusCode int) {
	status := r.bad
	if statusCode == 200 {
		status = r.ok
	}
	status.Fprintf(r.w, "[%d]", statusCode)
	fmt.Fprint(r.w, " Saving ")
	r.name.Fprint(r.w, name)
	fmt.Fprintln(r.w)
}

func (r *Reporter) SaveFailed(name string, err error) {
	r.errTag.Fprint(r.w, "[ERR]")
	fmt.Fprintf(r.w, " Failed to save %s: %v\n", name, err)
}

func (r *Reporter) VerifyFailed(name string, err error) {
	r.errTag.Fprint(r.w, "[ERR]")
	fmt.Fprintf(r.w, " Checksum mismatch for %s: %v\n", name, err)
}

func (r *Reporter) Summary(saved, total int) {
	r.summary.Fprintf(r.w, "Saved %d/%d files", saved, total)
	fmt.Fprintln(r.w)
}

// LoadFailed reports a manifest that could not be read or parsed.
func (r *Reporter) LoadFailed(err error) {
	r.errTag.Fprint(r.w, "[ERR]")
	fmt.Fprintf(r.w, " %v\n", err)
}
