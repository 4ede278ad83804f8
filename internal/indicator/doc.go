// Package indicator defines the contract between the detection pipeline and
// the visible trust badge.
package indicator
