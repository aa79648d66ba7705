// Package backend defines the key-value persistence contract the contacts
// store is layered over, plus an in-memory implementation.
//
// A backend stores opaque values under keys it assigns itself. Every call is
// independently atomic per key; nothing spans keys. One key, IndexKey, is
// reserved for the store's index and is never handed out by Add.
package backend

import (
	"context"
	"errors"
)

// Key identifies a value in a backend. Keys are assigned by Add and stay
// stable until the value is removed.
type Key int64

// IndexKey is the reserved slot holding the serialized index.
const IndexKey Key = 1

// ErrNotFound is returned by Get when no value exists at the key.
var ErrNotFound = errors.New("backend: key not found")

// Backend is the persistence collaborator used by the contacts store.
type Backend interface {
	// Add stores value under a newly assigned key. The key is never IndexKey
	// and never reused within the lifetime of the backend.
	Add(ctx context.Context, value []byte) (Key, error)

	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Update stores value at key, creating it if absent.
	Update(ctx context.Context, key Key, value []byte) error

	// Remove deletes the value at key. Reports whether anything was removed.
	Remove(ctx context.Context, key Key) (bool, error)

	// Clear removes every value, the index slot included. The key sequence
	// is not reset.
	Clear(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
