// Package store provides the verdict caches and the recent-history trail:
// an in-process ephemeral cache, an optional Redis-backed shared cache for
// authoritative verdicts, and a SQLite-backed bounded history store.
package store
