// Package page defines the boundary between the detection engine and the
// host that renders documents. The engine consumes snapshots, change
// events, live video handles, and a capture primitive; it never reaches
// into the document directly.
package page
