// Package daemon coordinates the long-running scrollsafe process.
//
// It wires configuration, the page session, the change-signal bridge, the
// detection pipeline, and the verdict stores into a single lifecycle with
// flock-based locking to prevent multiple instances, and serves the localhost
// HTTP API the CLI talks to.
//
// Keep orchestration logic here: detection and scan behavior lives in the
// pipeline while the daemon focuses on startup, shutdown, and the control
// surface.
package daemon
