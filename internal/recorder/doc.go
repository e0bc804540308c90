// Package recorder is the write path for location samples.
//
// A Recorder pairs a store.Store with a durability.Manager. Every mutation
// is applied in memory, snapshotted and queued for flushing under one
// mutex, so flushes are issued in mutation order. The caller then waits
// for its flush outside the mutex. A failed flush leaves the mutation in
// place and surfaces KindDurabilityWriteFailed.
package recorder
