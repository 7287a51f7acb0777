// Package store provides durable storage for the matching engine.
//
// Tables:
//   - projects, files, file_versions: the binaries being compared
//   - instances: functions, data items and universal singletons per version
//   - vectors: one feature encoding per (instance, type)
//   - tasks: matching runs with status and progress
//   - matches: scored edges produced by tasks, append-only
//
// # Task State
//
// Task transitions are single conditional UPDATE statements, so concurrent
// pollers never observe a half-applied change:
//   - ClaimTask: pending → started, only when status = 'pending'
//   - IncrementProgress: progress = progress + delta
//   - FinishTask: started → done, or pending/started → failed
//
// # Vector Reads
//
// VectorSet pages through vectors with keyset pagination (id > last ORDER BY
// id LIMIT n). No read cursor stays open between pages, which lets match
// batches be written while a vector set is being iterated on a
// single-connection SQLite database.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s on lock contention
//   - foreign_keys=ON: Referential integrity
//
// Timestamps are stored as RFC 3339 text with nanoseconds in UTC.
package store
