// Package store keeps run history in SQLite.
//
// Each completed run is one row in runs plus one row per case in
// case_results. Interrupted runs are never recorded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Runs are listed newest first (ORDER BY started_at DESC, id DESC); case
// results come back in suite order (ORDER BY seq ASC).
package store
