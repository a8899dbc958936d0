// Package store provides SQLite-backed durable storage for documents.
//
// One database holds every declared table's documents:
//   - Documents: id, owning table, creation time, canonical-JSON fields
//   - Index Entries: materialized secondary index rows
//   - Unique Entries: uniqueness enforcement via primary-key conflicts
//
// # Critical Patterns
//
// All ordering uses seq INTEGER (logical insertion clock), never
// timestamps. Every scan orders by seq ASC, so pages are deterministic
// and cursors are plain seq positions.
//
// Index values are RFC 8785 canonical JSON, so index equality is byte
// equality and survives any round trip.
//
// A write that violates a unique index surfaces as the distinguishable
// NOT_UNIQUE failure, never a generic constraint error.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Cascade index rows when documents go
package store
