// Package clipboard reads a manifest location from the system clipboard.
package clipboard

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
)

const (
	// maxLocationLength keeps pasted blobs from being treated as a path.
	maxLocationLength = 2048
)

var (
	// ErrClipboardRead indicates an error reading from the clipboard
	ErrClipboardRead = errors.New("failed to read from clipboard")
	// ErrInvalidLocation indicates the clipboard does not hold a manifest location
	ErrInvalidLocation = errors.New("clipboard does not contain a manifest path or URL")
)

type Validator struct {
	allowedSchemes    map[string]bool
	allowedExtensions map[string]bool
}

func NewValidator() *Validator {
	return &Validator{
		allowedSchemes: map[string]bool{"http": true, "https": true},
		allowedExtensions: map[string]bool{
			".json": true, ".yaml": true, ".yml": true, ".mrpack": true, ".zip": true,
		},
	}
}

// ExtractLocation returns text when it is an http(s) URL or a file path with
// a manifest extension, and "" otherwise.
func (v *Validator) ExtractLocation(text string) string {
	text = strings.Trim(strings.TrimSpace(text), `"'`)

	if text == "" || len(text) > maxLocationLength || strings.ContainsAny(text, "\n\r") {
		return ""
	}

	if parsed, err := url.Parse(text); err == nil && parsed.Scheme != "" && len(parsed.Scheme) > 1 {
		if !v.allowedSchemes[parsed.Scheme] || strings.TrimSpace(parsed.Host) == "" {
			return ""
		}
		return parsed.String()
	}

	ext := strings.ToLower(path.Ext(filepath.ToSlash(text)))
	if !v.allowedExtensions[ext] {
		return ""
	}
	return text
}

// ReadLocation reads the clipboard and returns a manifest location.
func ReadLocation() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", ErrClipboardRead
	}

	location := NewValidator().ExtractLocation(text)
	if location == "" {
		return "", ErrInvalidLocation
	}
	return location, nil
}
