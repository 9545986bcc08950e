// Package store provides SQLite-backed durable storage for the field tool.
//
// The store holds two kinds of collections:
//   - Pending submissions: one record per target (target_id primary key),
//     with the photo bytes in a child table that cascades on delete.
//   - Reference-data caches: opaque JSON records under named collections
//     (targets, users, teams, servicos), consumed for offline display.
//
// Invariants:
//   - At most one pending submission per target. Enforced by the primary key
//     and upsert-on-put, not by locking: a re-enqueue replaces the previous
//     record and its photo set atomically, last write wins.
//   - Every exported operation is individually atomic (a single statement or
//     a single transaction). Multi-step call sequences are not atomic across
//     steps and must not be relied on beyond last-write-wins.
//   - ListSubmissions returns key order (target_id ASC), never time order.
//
// The schema version is tracked via PRAGMA user_version and migrated forward
// on Open. Existing databases are never silently dropped; the only bulk
// deletion paths are the explicit Clear operations.
//
// Failure reporting: any inaccessible or corrupted underlying database
// surfaces as *UnavailableError. The store abandons the failed operation and
// never retries internally.
package store
