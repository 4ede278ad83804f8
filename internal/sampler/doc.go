// Package sampler captures evenly spaced still frames from a live video
// element through the host capture primitive.
package sampler
