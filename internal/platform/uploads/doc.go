// Package uploads answers whether a task's recorded audio artifact exists,
// either in a local directory or in an S3-compatible bucket.
package uploads
