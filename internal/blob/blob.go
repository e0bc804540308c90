// Package blob provides durable key/value storage for whole-value blobs.
//
// A backend stores opaque byte slices under string keys. Put replaces the
// entire value atomically: a concurrent Get observes either the previous
// value or the new one, never a partial write.
//
// Implementations:
//   - SQLite: durable, single-file database (mattn or modernc driver)
//   - Memory: process-local, for tests and dry runs
package blob

import (
	"context"
	"errors"
)

// Backend is the durable blob capability consumed by the durability layer.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, data []byte) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for blob operations.
var (
	// ErrNotFound indicates a key has no stored value.
	ErrNotFound = errors.New("blob not found")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("blob backend closed")
)
