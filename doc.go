// Package gatequeue implements the job orchestration daemon: it mediates
// between untrusted clients dropping JSON job-request files into a shared
// directory tree and one or more backend batch schedulers, validating
// requests, tracking each job through its lifecycle, enforcing per-service
// disk quotas, and publishing machine-readable status back to clients
// through the same directory tree.
//
// JobManager owns the single control loop: once per tick it admits new
// requests, polls scheduler adapters for progress, dispatches cleanup
// workers, honors kill and delete requests, and ages out stale jobs. No
// client code ever runs in the daemon's address space — every interaction
// is mediated by gatefs.Gate.
package gatequeue
