// Package store provides the optional SQLite run history.
//
// Each saved run records its ID, registry fingerprint, engine command,
// start time, elapsed time and outcome counts, plus one row per verdict
// in registry order. Mismatch divergences are stored with their raw
// window bytes so a loaded report renders exactly like the original.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Listings are ordered by started_at DESC, id DESC so that output is
// deterministic even when two runs share a timestamp.
package store
