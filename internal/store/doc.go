// Package store defines the persistence interfaces of the review engine:
// the read-mostly task catalog, reviewers, the single-row reviewer state, and
// annotations. Implementations live under internal/platform.
package store
