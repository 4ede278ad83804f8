// Package testsupport provides shared fixtures for package tests: per-test
// configs, a scriptable page session, an indicator recorder, and a fake
// backend client.
package testsupport
