// Package store provides the in-memory source of truth for location samples.
//
// The store is an append-only collection with:
//   - Append: assigns the next ID and a creation time, then inserts
//   - Query: paginated history, newest first
//   - Count / First / Last: aggregate reads
//   - Clear: removes every sample, keeping the ID counter
//   - ExportAll: bounded full dump in Query order
//
// The store performs no I/O. Callers pair every mutation with a durability
// flush (see package recorder).
//
// # Ordering
//
// Samples are held sorted ascending by (timestamp, id). Timestamps are
// supplied by the position source and may jump backwards, so the id
// tie-break keeps pagination stable when two samples share a timestamp.
//
// # Identity
//
// IDs are strictly increasing in append order and are never reused. Clear
// does not reset the counter, so a stale snapshot reloaded after a restart
// can never collide with IDs issued after the clear.
package store
