package recovery

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when grading is attempted on a record that
	// already reached Verified or LockedOut.
	ErrInvalidState = errors.New("activation already resolved")

	// ErrNotFound is returned when no activation record exists for an account.
	ErrNotFound = errors.New("activation record not found")

	// ErrExists is returned by Begin when the account already has a live record.
	ErrExists = errors.New("activation record already exists")

	// ErrExpired is returned when a pending record outlived its TTL.
	// The host must start over with a freshly generated phrase.
	ErrExpired = errors.New("activation expired")
)

// ConfigError reports an unusable generator or manager configuration.
// It is fatal at startup and never produced by a per-request operation
// whose inputs were accepted at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("recovery config: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
