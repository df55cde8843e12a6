// Package request represents a client's raw, not-yet-validated job
// submission: the parsed JSON body deposited under jobs/<id>.
//
// Body intentionally carries no delivery state — that lives on job.Job.
// It exists only to give the raw map[string]any key/value accesses the
// same type-safe Get/Set helpers the rest of the codebase uses for its
// other untyped maps, and to centralize the "which service does this
// belong to" lookup the validator needs before it has a schema to apply.
package request
