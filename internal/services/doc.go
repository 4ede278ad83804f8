// Package services defines shared utilities consumed by the detection
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp mount points, dedup identities, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the indicator taxonomy (miss, retryable request failure, capture
//     failure, timeout, cancellation).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// stays uniform across components.
package services
