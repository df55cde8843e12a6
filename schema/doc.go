// Package schema implements the per-service variable schema and the
// validation engine that turns a client's raw JSON request into a typed,
// bounded record.
//
// A schema is a set of named variable declarations loaded once from a YAML
// document at startup (see Load); each declaration carries a VarType and a
// bound whose shape depends on that type. Validate applies a loaded schema
// to a parsed request body and returns a map of Value, each tagged with
// the VarType it was coerced into. Validation is pure: it never touches
// the filesystem and never mutates its inputs.
package schema
