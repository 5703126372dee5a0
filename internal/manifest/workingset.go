package manifest

import "manifest_fetcher/internal/utils"

// Task is one unit of work for the fetcher, derived from a FileEntry.
type Task struct {
	// Name is the basename of Path and the working-set key.
	Name string
	// URL is the entry's first download URL; empty when the entry has none.
	URL    string
	Path   string
	Hashes map[string]string
	Size   int64
}

// WorkingSet maps display names to tasks. Keys iterate in first-insertion
// order; a later entry with the same name replaces the value in place.
type WorkingSet struct {
	order []string
	tasks map[string]Task
}

// BuildWorkingSet derives the working set from m. Two entries sharing a
// basename collapse into one and the later entry wins.
func BuildWorkingSet(m *Manifest) *WorkingSet {
	ws := &WorkingSet{tasks: make(map[string]Task)}
	if m == nil {
		return ws
	}

	for _, entry := range m.Files {
		name := utils.DisplayName(entry.Path)
		if prev, ok := ws.tasks[name]; ok {
			utils.Debug("Working set: %s replaces %s under name %s", entry.Path, prev.Path, name)
		} else {
			ws.order = append(ws.order, name)
		}
		ws.tasks[name] = Task{
			Name:   name,
			URL:    entry.PrimaryURL(),
			Path:   entry.Path,
			Hashes: entry.Hashes,
			Size:   entry.FileSize,
		}
	}

	return ws
}

// Len is the number of distinct names, i.e. the batch total.
func (ws *WorkingSet) Len() int {
	return len(ws.order)
}

// Get looks up a task by display name.
func (ws *WorkingSet) Get(name string) (Task, bool) {
	t, ok := ws.tasks[name]
	return t, ok
}

// Tasks returns the tasks in iteration order.
func (ws *WorkingSet) Tasks() []Task {
	out := make([]Task, 0, len(ws.order))
	for _, name := range ws.order {
		out = append(out, ws.tasks[name])
	}
	return out
}
