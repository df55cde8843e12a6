package gatefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cisgate/gatequeue/job"
)

// Gate is the concrete, filesystem-backed implementation of job.Store plus
// the read paths JobManager needs beyond what a single Job cares about
// (probing state on startup, listing jobs, reading request bodies).
type Gate struct {
	paths Paths
}

var _ job.Store = (*Gate)(nil)

// NewGate constructs a Gate over paths. It does not create any
// directories; call EnsureDirs once at startup.
func NewGate(paths Paths) *Gate {
	return &Gate{paths: paths}
}

// EnsureDirs creates every directory named by Paths that does not already
// exist.
func (g *Gate) EnsureDirs() error {
	for _, d := range g.paths.Dirs() {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("gatefs: create %s: %w", d, err)
		}
	}
	return nil
}

// SetState implements job.Store. It is a no-op if new is job.Unknown (the
// caller is clearing in-memory state without touching the gate). It
// creates the new state symlink first, then best-effort removes every
// other state symlink, tolerating "already gone" on each.
func (g *Gate) SetState(id string, new job.State) error {
	if new == job.Unknown {
		return nil
	}
	newDir, ok := g.paths.States[new.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, new)
	}

	link := filepath.Join(newDir, id)
	target := filepath.Join(g.paths.Jobs, id)
	if err := symlinkIfMissing(target, link); err != nil {
		return fmt.Errorf("gatefs: set state %s for %s: %w", new, id, err)
	}

	for name, dir := range g.paths.States {
		if name == new.String() {
			continue
		}
		_ = os.Remove(filepath.Join(dir, id))
	}
	return nil
}

// CheckState probes every configured state directory in precedence order
// and returns the first one holding a symlink for id, or job.Unknown if
// none do.
func (g *Gate) CheckState(id string) job.State {
	for _, s := range job.Precedence() {
		dir, ok := g.paths.States[s.String()]
		if !ok {
			continue
		}
		if _, err := os.Lstat(filepath.Join(dir, id)); err == nil {
			return s
		}
	}
	return job.Unknown
}

// WriteOpts implements job.Store: it persists the exit triple to
// opts/<id> as JSON, overwriting any previous content.
func (g *Gate) WriteOpts(id string, rec job.ExitRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("gatefs: marshal opts for %s: %w", id, err)
	}
	return writeFileAtomic(filepath.Join(g.paths.Opts, id), data)
}

// ReadOpts reads back a previously persisted ExitRecord, used to restore a
// Job's exit state across a restart.
func (g *Gate) ReadOpts(id string) (job.ExitRecord, error) {
	data, err := os.ReadFile(filepath.Join(g.paths.Opts, id))
	if err != nil {
		return job.ExitRecord{}, err
	}
	var rec job.ExitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return job.ExitRecord{}, fmt.Errorf("gatefs: unmarshal opts for %s: %w", id, err)
	}
	return rec, nil
}

// WriteExit implements job.Store: it writes the final, human-readable
// status message to exit/<id>.
func (g *Gate) WriteExit(id string, message string) error {
	return writeFileAtomic(filepath.Join(g.paths.Exit, id), []byte(message))
}

// MarkDelete implements job.Store: it creates delete/<id> as a symlink to
// jobs/<id>, the client-visible delete request mark.
func (g *Gate) MarkDelete(id string) error {
	return symlinkIfMissing(filepath.Join(g.paths.Jobs, id), filepath.Join(g.paths.Delete, id))
}

// OutputSize implements job.Store: it measures output/<id> using `du -sb`,
// the same fast recursive sizing the teacher's size estimation favors
// over walking the tree in-process. A missing directory yields 0, not an
// error.
func (g *Gate) OutputSize(ctx context.Context, id string) (int64, error) {
	dir := filepath.Join(g.paths.Output, id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	cmd := exec.CommandContext(ctx, "du", "-sb", dir)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("gatefs: du %s: %w", dir, err)
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return 0, fmt.Errorf("gatefs: du %s: empty output", dir)
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("gatefs: du %s: parse size: %w", dir, err)
	}
	return size, nil
}

// ListJobIDs returns every id with a request body under jobs/, used by
// JobManager on startup to reconstruct its in-memory index.
func (g *Gate) ListJobIDs() ([]string, error) {
	entries, err := os.ReadDir(g.paths.Jobs)
	if err != nil {
		return nil, fmt.Errorf("gatefs: list jobs: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// ReadBody reads and JSON-decodes a job's request body from jobs/<id>.
func (g *Gate) ReadBody(id string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(g.paths.Jobs, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gatefs: read body %s: %w", id, err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("gatefs: decode body %s: %w", id, err)
	}
	return body, nil
}

// OutputExists reports whether output/<id> exists, used both by the
// garbage collector's candidate filter and by the aging check.
func (g *Gate) OutputExists(id string) bool {
	_, err := os.Stat(filepath.Join(g.paths.Output, id))
	return err == nil
}

// ListState lists the ids with a symlink in the named state directory.
func (g *Gate) ListState(state string) ([]string, error) {
	dir, ok := g.paths.States[state]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, state)
	}
	return listDir(dir)
}

// ListStop lists the ids with a kill mark under stop/.
func (g *Gate) ListStop() ([]string, error) {
	return listDir(g.paths.Stop)
}

// ListDelete lists the ids with a delete mark under delete/.
func (g *Gate) ListDelete() ([]string, error) {
	return listDir(g.paths.Delete)
}

// RemoveStopMark removes a consumed kill mark.
func (g *Gate) RemoveStopMark(id string) error {
	err := os.Remove(filepath.Join(g.paths.Stop, id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// AgeOf returns how long ago the gate-relative reference path for id was
// last modified, used by the aging rules in check_old_jobs. The path is
// not followed if it is a symlink, so for a state symlink this is the time
// the link was made. dir must be one of the paths exposed by
// StateDir/OutputDir/JobsDir.
func (g *Gate) AgeOf(dir, id string) (time.Duration, error) {
	info, err := os.Lstat(filepath.Join(dir, id))
	if err != nil {
		return 0, err
	}
	return time.Since(info.ModTime()), nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// ListDir lists the entry names of an arbitrary directory. It exists so
// callers that need to read a scheduler adapter's own queue_path (not one
// of the gate's own directories) still funnel the raw filesystem call
// through this package rather than calling os.ReadDir directly.
func ListDir(dir string) ([]string, error) {
	return listDir(dir)
}

// Unlink removes an arbitrary file, for the same reason as ListDir:
// reaping a scheduler adapter's zombie handle marker.
func Unlink(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CreatedAt returns the os.FileInfo of the given gate-relative path
// (following symlinks), from which callers can read its timestamps.
func (g *Gate) CreatedAt(relDir, id string) (os.FileInfo, error) {
	return os.Stat(filepath.Join(relDir, id))
}

// StateDir exposes a configured state directory's absolute path, e.g. for
// CreatedAt(g.StateDir("running"), id).
func (g *Gate) StateDir(state string) string {
	return g.paths.States[state]
}

// OutputDir exposes the output/ root, for the same reason as StateDir.
func (g *Gate) OutputDir() string {
	return g.paths.Output
}

// JobsDir exposes the jobs/ root, for the same reason as StateDir.
func (g *Gate) JobsDir() string {
	return g.paths.Jobs
}

func symlinkIfMissing(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
