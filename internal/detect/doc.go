// Package detect houses the per-platform candidate detectors and the
// registry the pipeline resolves candidates through. Detectors are pure
// functions of a document snapshot; they never touch pipeline state.
package detect
