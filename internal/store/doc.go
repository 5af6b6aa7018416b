// Package store provides SQLite-backed storage for finished saturation
// runs.
//
// Each run is written once, in a single transaction, as:
//   - runs: one row per run, keyed by run id, with the canonical report
//     JSON and its digest
//   - iterations: per-iteration graph size and phase timings
//   - rule_applications: matches and effective unions per rule and
//     iteration
//
// Writes are idempotent on the run id: writing the same run twice leaves
// the first copy in place.
//
// # Ordering
//
// Runs are ordered by their insertion sequence, never by wall time, with
// the run id as a binary tie-break. Iterations are ordered by index and
// rule rows by rule name.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Report blobs are canonical JSON from internal/report, so the stored
// digest can be recomputed from the blob alone.
package store
