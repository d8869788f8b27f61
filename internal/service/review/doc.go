// Package review implements reviewer assignment and progress tracking.
//
// A Service answers two questions for an already authenticated reviewer:
// which task should be judged next, and what happens after a judgment is
// submitted. It resumes the batch in progress when there is one, otherwise
// it picks a new batch with a SelectionPolicy. Progress lives in one
// ReviewerState row per reviewer, managed by a StateKeeper.
//
// Next and Submit never fail: every error is logged and converted into an
// error Payload carrying the empty-task shape, so clients degrade to "no task"
// instead of breaking. NextTask and SubmitAnnotation expose the same
// operations with ordinary error returns.
package review
