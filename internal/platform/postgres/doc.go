// Package postgres provides PostgreSQL-specific implementations of the
// persistence interfaces defined in the internal/store package: the task
// catalog queries, reviewers, annotations and the per-reviewer state row.
// It also owns the embedded schema migrations and the retry of transient
// lock and serialization failures.
package postgres
