// Package repositories implements SQLite persistence for the resolution cache and the run ledger.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
//
// Key Implementations:
//   - [MediaCacheRepository] : remembered resolutions keyed by normalized title and artist, soft deleted
//   - [MediaCacheAdapter] : resolver.Cache over the repository, ignoring duplicate keys
//   - [RunRepository] : append-only per-track outcomes grouped by run id, also a tasks.ResultRecorder
//
// The cache is a lookup shortcut only. Whether a track still needs downloading is always decided by the
// filesystem.
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
