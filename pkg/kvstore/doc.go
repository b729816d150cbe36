// Package kvstore provides the string key/value storage used to persist the
// notification ledger.
//
// Store is a minimal port: Get, an atomic SetMany batch, Delete and Close.
// Backends:
//
//   - Memory: in-process map, with write counting and failure injection for tests.
//   - SQLite: a local file through jmoiron/sqlx and modernc.org/sqlite.
//   - Redis: go-redis, batches inside MULTI/EXEC, keys namespaced by a prefix.
//   - Mongo: one document per key, batches as a single BulkWrite.
//
// Open picks a backend from Config, which carries env tags for every backend.
package kvstore
