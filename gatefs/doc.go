// Package gatefs wraps the shared directory tree ("the gate") that acts as
// the daemon's persistent, crash-tolerant message bus between untrusted
// clients and the job lifecycle.
//
// Per-state directories (waiting/, queued/, running/, ...) hold a symlink
// per job whose mere presence asserts the job's current state; jobs/,
// opts/, exit/, stop/, delete/ and output/ hold the job's request body,
// persisted exit triple, final status, kill/delete marks, and output tree
// respectively. Nothing outside this package issues a raw filesystem call
// against the gate; job.Job talks to it exclusively through the Store
// interface it defines.
package gatefs
