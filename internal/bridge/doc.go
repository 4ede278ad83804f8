// Package bridge turns raw host change events into debounced detection
// signals.
package bridge
