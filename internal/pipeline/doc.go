// Package pipeline is the detection core. It consumes candidates from the
// detector registry, de-duplicates work per mount point, runs the
// cheap/cached/expensive verdict workflow with cooperative cancellation,
// and drives the indicator state machine.
//
// The concurrency discipline: every mount state mutation happens under one
// mutex, and every asynchronous continuation re-validates the tracked
// generation after each suspension point. Work whose generation moved on
// discards itself silently; late results are never displayed against a
// mount point that switched videos.
package pipeline
