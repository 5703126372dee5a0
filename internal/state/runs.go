package state

import (
	"database/sql"
	"errors"
	"fmt"
	"manifest_fetcher/internal/download"
	"manifest_fetcher/internal/utils"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the fetcher.
type Run struct {
	ID          string
	Manifest    string
	OutputRoot  string
	StartedAt   time.Time
	FinishedAt  time.Time
	Saved       int
	Total       int
	Interrupted bool
}

// ResultRow is a persisted download.Result.
type ResultRow struct {
	Name       string
	URL        string
	Path       string
	Outcome    string
	StatusCode int
	Bytes      int64
	Kind       string
	Error      string
	Duration   time.Duration
}

// BeginRun inserts a new run and returns its id.
func BeginRun(manifest, outputRoot string) (string, error) {
	id := uuid.New().String()
	err := withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO runs (id, manifest, output_root, started_at) VALUES (?, ?, ?, ?)`,
			id, manifest, utils.EnsureAbsPath(outputRoot), time.Now().UnixMilli())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return id, nil
}

// RecordResult appends one entry's result to a run.
func RecordResult(runID string, r download.Result) error {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	return withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO results
			(run_id, name, url, path, outcome, status_code, bytes, kind, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Task.Name, r.Task.URL, r.Task.Path, r.Outcome.String(),
			r.StatusCode, r.Bytes, r.Kind, errText, r.Duration.Milliseconds())
		return err
	})
}

// FinishRun stores the final tally.
func FinishRun(runID string, s *download.Summary) error {
	return withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE runs SET finished_at = ?, saved = ?, total = ?, interrupted = ? WHERE id = ?`,
			time.Now().UnixMilli(), s.Saved, s.Total, s.Interrupted, runID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func ListRuns(limit int) ([]Run, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, manifest, output_root, started_at, finished_at, saved, total, interrupted
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun looks up a run by id or by a unique id prefix.
func GetRun(id string) (Run, error) {
	if id == "" {
		return Run{}, fmt.Errorf("%w: empty run id", ErrRunNotFound)
	}

	d, err := GetDB()
	if err != nil {
		return Run{}, err
	}

	rows, err := d.Query(`SELECT id, manifest, output_root, started_at, finished_at, saved, total, interrupted
		FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, id, id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}

	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// RunResults returns a run's results in the order they were recorded.
func RunResults(runID string) ([]ResultRow, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}

	rows, err := d.Query(`SELECT name, url, path, outcome, status_code, bytes, kind, error, duration_ms
		FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var url, path, kind, errText sql.NullString
		var status, bytes, durMs sql.NullInt64
		if err := rows.Scan(&r.Name, &url, &path, &r.Outcome, &status, &bytes, &kind, &errText, &durMs); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.URL = url.String
		r.Path = path.String
		r.Kind = kind.String
		r.Error = errText.String
		r.StatusCode = int(status.Int64)
		r.Bytes = bytes.Int64
		r.Duration = time.Duration(durMs.Int64) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var started int64
	var finished sql.NullInt64
	var interrupted bool
	if err := rows.Scan(&r.ID, &r.Manifest, &r.OutputRoot, &started, &finished, &r.Saved, &r.Total, &interrupted); err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		r.FinishedAt = time.UnixMilli(finished.Int64)
	}
	r.Interrupted = interrupted
	return r, nil
}

// Recorder journals results for one run. Write errors are logged and
// swallowed so history never fails a batch.
type Recorder struct {
	RunID string
}

func (r *Recorder) Record(res download.Result) {
	if err := RecordResult(r.RunID, res); err != nil {
		utils.Debug("History: failed to record %s: %v", res.Task.Name, err)
	}
}
