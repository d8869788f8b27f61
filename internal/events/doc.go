// Package events carries review lifecycle events from the review service to
// an ordered list of registered handlers.
//
// The primary components are:
// - ReviewEvent: a batch started, an annotation submitted, or a batch completed
// - EventHandler: interface for components that react to events
// - EventEmitter: interface the review service publishes through
// - ForProjects: scopes a handler to a set of projects
package events
