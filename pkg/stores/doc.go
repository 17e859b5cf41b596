// Package stores provides the persistence implementations of
// engine.StateStore: a sentinel-file marker store and a SQLite store that
// additionally keeps run history and an append-only event log.
package stores
