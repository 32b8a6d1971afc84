// Package storage persists the bounded fingerprint history shared by every
// castbot process.
//
// All drivers store the history as one JSON array of strings and expose a
// single atomic read-modify-write primitive (HistoryStore.Update):
//   - "file": JSON file guarded by flock on <path>.lock plus an in-process mutex
//   - "sqlite": one row in a SQLite database, mutated inside BEGIN IMMEDIATE
//   - "redis": one key, mutated with WATCH/MULTI and retried on conflict
package storage
