// Package index keeps a derived SQLite copy of every cube for fast queries.
//
// The index is a cache. Cubes are the only source of truth: seal and replay
// never read it, and Rebuild can always recreate it from scratch. Deleting
// the database file loses nothing.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: The index is rebuildable, so NORMAL is enough
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events cascade with their cube row
//
// Query results are ordered by (timestamp_ms, author, period, id), the same
// order Interlace uses.
package index
