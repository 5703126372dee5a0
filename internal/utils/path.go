package utils

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when a manifest path would land outside the
// output root.
var ErrUnsafePath = errors.New("path escapes output root")

// EnsureAbsPath normalizes a path for consistent persistence in run history.
func EnsureAbsPath(p string) string {
	if p == "" {
		p = "."
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// DisplayName is the last slash-separated element of a manifest path.
// Manifest paths always use "/" regardless of platform.
func DisplayName(manifestPath string) string {
	if i := strings.LastIndex(manifestPath, "/"); i >= 0 {
		return manifestPath[i+1:]
	}
	return manifestPath
}

// JoinUnderRoot joins a slash-separated relative path onto root and rejects
// results that are absolute or climb out of root.
func JoinUnderRoot(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if path.IsAbs(rel) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %s is absolute", ErrUnsafePath, rel)
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	return filepath.Join(root, filepath.FromSlash(cleaned)), nil
}
