package manifest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"manifest_fetcher/internal/utils"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

var (
	// ErrNotFound means the manifest location could not be opened or fetched.
	ErrNotFound = errors.New("manifest not found")
	// ErrMalformed means the manifest was read but is not a usable document.
	ErrMalformed = errors.New("malformed manifest")
)

// PackIndexName is the index member inside a .mrpack archive.
const PackIndexName = "modrinth.index.json"

// maxRemoteSize bounds how much of a remote manifest is read.
const maxRemoteSize = 64 << 20

// Format selects the decoder for a manifest document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatPack
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatPack:
		return "mrpack"
	default:
		return "json"
	}
}

// DetectFormat picks a format from the file extension. Unknown extensions
// are treated as JSON.
func DetectFormat(name string) Format {
	switch strings.ToLower(path.Ext(filepath.ToSlash(name))) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".mrpack", ".zip":
		return FormatPack
	default:
		return FormatJSON
	}
}

// Getter is the slice of the HTTP client the loader needs for remote
// manifests.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Loader reads manifests from disk or, when Client is set, over HTTP.
type Loader struct {
	Client Getter
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load reads a manifest from a local path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, location string) (*Manifest, error) {
	if IsRemote(location) {
		return l.loadRemote(ctx, location)
	}
	return Load(location)
}

// Load reads and decodes the manifest at a local file system path.
func Load(filePath string) (*Manifest, error) {
	utils.Debug("Loading manifest %s", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, filePath, err)
	}

	return Parse(data, DetectFormat(filePath), filePath)
}

func (l *Loader) loadRemote(ctx context.Context, location string) (*Manifest, error) {
	if l.Client == nil {
		return nil, fmt.Errorf("%w: %s: no HTTP client configured", ErrNotFound, location)
	}
	utils.Debug("Fetching remote manifest %s", location)

	resp, err := l.Client.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrNotFound, location, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, location, err)
	}

	u, _ := url.Parse(location)
	return Parse(data, DetectFormat(u.Path), location)
}

// Parse decodes data in the given format. source is only used in error
// messages.
func Parse(data []byte, format Format, source string) (*Manifest, error) {
	if format == FormatPack {
		index, err := readPackIndex(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, source, err)
		}
		data = index
		format = FormatJSON
	}

	var raw rawManifest
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s format in %s: %v", ErrMalformed, format, source, err)
	}

	m, err := raw.validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, source, err)
	}
	return m, nil
}

func readPackIndex(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a pack archive: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != PackIndexName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("archive has no %s", PackIndexName)
}

func (r rawManifest) validate() (*Manifest, error) {
	m := &Manifest{
		FormatVersion: r.FormatVersion,
		Game:          r.Game,
		VersionID:     r.VersionID,
		Name:          r.Name,
		Summary:       r.Summary,
		Dependencies:  r.Dependencies,
		Files:         make([]FileEntry, 0, len(r.Files)),
	}

	for i, e := range r.Files {
		if e.Path == nil {
			return nil, fmt.Errorf("files[%d]: missing \"path\"", i)
		}
		if e.Downloads == nil {
			return nil, fmt.Errorf("files[%d] (%s): missing \"downloads\"", i, *e.Path)
		}
		m.Files = append(m.Files, FileEntry{
			Path:      *e.Path,
			Downloads: *e.Downloads,
			Hashes:    e.Hashes,
			FileSize:  e.FileSize,
			Env:       e.Env,
		})
	}

	return m, nil
}
