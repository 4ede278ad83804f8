// Package backend implements the HTTP client for the ScrollSafe analysis
// service: authoritative verdict lookup, the cheap heuristic request, and
// the deep-scan job interfaces.
package backend
