// Package manifest reads the document that lists the files to fetch and
// turns it into the working set consumed by the download package.
package manifest

// Manifest is the decoded document. Only Files drives fetching; the Modrinth
// pack fields are carried for display and run history.
type Manifest struct {
	FormatVersion int               `json:"formatVersion,omitempty"`
	Game          string            `json:"game,omitempty"`
	VersionID     string            `json:"versionId,omitempty"`
	Name          string            `json:"name,omitempty"`
	Summary       string            `json:"summary,omitempty"`
	Dependencies  map[string]string `json:"dependencies,omitempty"`
	Files         []FileEntry       `json:"files"`
}

// FileEntry describes one file: where it goes and where to get it.
type FileEntry struct {
	// Path is relative and slash-separated.
	Path string `json:"path"`
	// Downloads lists candidate URLs; only the first is used.
	Downloads []string          `json:"downloads"`
	Hashes    map[string]string `json:"hashes,omitempty"`
	FileSize  int64             `json:"fileSize,omitempty"`
	Env       *Env              `json:"env,omitempty"`
}

// Env is Modrinth's per-side requirement ("required", "optional",
// "unsupported").
type Env struct {
	Client string `json:"client,omitempty"`
	Server string `json:"server,omitempty"`
}

// PrimaryURL returns the first download URL, or "" when there is none.
func (e FileEntry) PrimaryURL() string {
	if len(e.Downloads) == 0 {
		return ""
	}
	return e.Downloads[0]
}

// rawManifest mirrors Manifest with pointer fields so a missing key can be
// told apart from an empty value.
type rawManifest struct {
	FormatVersion int               `json:"formatVersion"`
	Game          string            `json:"game"`
	VersionID     string            `json:"versionId"`
	Name          string            `json:"name"`
	Summary       string            `json:"summary"`
	Dependencies  map[string]string `json:"dependencies"`
	Files         []rawEntry        `json:"files"`
}

type rawEntry struct {
	Path      *string           `json:"path"`
	Downloads *[]string         `json:"downloads"`
	Hashes    map[string]string `json:"hashes"`
	FileSize  int64             `json:"fileSize"`
	Env       *Env              `json:"env"`
}
