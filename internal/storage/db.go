// Package storage provides database abstractions.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// UpdateFunc receives the current value of a key (nil when absent) and
// returns the value to store. Returning a nil value deletes the key.
// Returning an error aborts the update and leaves the key untouched.
type UpdateFunc func(current []byte) ([]byte, error)

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// Update performs an atomic read-modify-write of a single key.
	// Concurrent updates of the same key are serialized: fn always sees
	// the value committed by the previous update. fn may be invoked more
	// than once, so it must not have side effects outside its return values.
	Update(key []byte, fn UpdateFunc) error
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
