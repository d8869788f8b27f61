// Package domain contains the core entities of the review engine: reviewers and
// their persisted progress state, the audio tasks they judge, the batches those
// tasks are grouped into, and the annotations reviewers submit. It has no
// knowledge of storage or transport.
package domain
