// Package storage owns the single serialized store record and the key-value
// media it lives in. All durable reads and writes pass through the Store;
// every write replaces the whole record and notifies registered listeners.
package storage

import "errors"

// ErrKeyNotFound is returned by backends when a key has no value.
var ErrKeyNotFound = errors.New("key not found")

// Tx is a transaction over the key-value medium.
type Tx interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Set stores value under key. Only valid inside Update.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Backend is an embedded key-value medium. It is shared by every tab of the
// same process, the way browser local storage is shared by tabs of one origin.
type Backend interface {
	// View runs fn in a read-only transaction.
	View(fn func(tx Tx) error) error
	// Update runs fn in a read-write transaction. The transaction commits
	// only when fn returns nil.
	Update(fn func(tx Tx) error) error
	// Close releases the medium.
	Close() error
}
