package gatefs

import (
	"fmt"
	"os"
	"path/filepath"
)

// RemoveJob physically deletes a job from the gate: every state symlink,
// jobs/<id>, exit/<id> if present, and output/<id> (staged through dump/
// before the recursive delete so a crash mid-removal never leaves a
// partially-deleted tree directly under output/). It does not touch
// delete/<id> itself; the spec leaves that mark dangling once its target
// is gone, and so does this.
func (g *Gate) RemoveJob(id string) error {
	for _, dir := range g.paths.States {
		_ = os.Remove(filepath.Join(dir, id))
	}
	if err := os.Remove(filepath.Join(g.paths.Jobs, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gatefs: remove job body %s: %w", id, err)
	}
	if err := os.Remove(filepath.Join(g.paths.Exit, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gatefs: remove exit status %s: %w", id, err)
	}

	outputDir := filepath.Join(g.paths.Output, id)
	if _, err := os.Stat(outputDir); err == nil {
		dumpDir := filepath.Join(g.paths.Dump, id)
		if err := os.Rename(outputDir, dumpDir); err != nil {
			return fmt.Errorf("gatefs: stage %s for removal: %w", id, err)
		}
		if err := os.RemoveAll(dumpDir); err != nil {
			return fmt.Errorf("gatefs: remove output %s: %w", id, err)
		}
	}
	return nil
}
