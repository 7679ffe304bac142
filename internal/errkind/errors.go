// Package errkind defines the four error kinds the compliance core is
// allowed to surface. Every exit path from the pipeline yields one of these;
// raw lower-level errors never reach the caller unwrapped.
package errkind

import "errors"

// InputError marks a malformed candidate field. Absorbed at the merge
// boundary: the candidate is dropped and logged, merging continues.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "input: " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// NewInput wraps err as an InputError.
func NewInput(err error) *InputError {
	return &InputError{Err: err}
}

// ConfigError marks a missing, empty, or unversioned rule catalogue. Fatal:
// evaluation cannot proceed, there is no fallback rule set.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfig wraps err as a ConfigError.
func NewConfig(err error) *ConfigError {
	return &ConfigError{Err: err}
}

// PersistenceError marks a history store read/write failure. Caught at the
// tracker boundary and downgraded to a partial-success signal; evaluation
// never fails solely because tracking failed.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persistence: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistence wraps err as a PersistenceError.
func NewPersistence(err error) *PersistenceError {
	return &PersistenceError{Err: err}
}

// ConflictError marks a duplicate (manufacturer, product, timestamp) append.
// Resolved as an idempotent no-op, not reported to the caller as a failure.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string { return "conflict: " + e.Err.Error() }
func (e *ConflictError) Unwrap() error { return e.Err }

// NewConflict wraps err as a ConflictError.
func NewConflict(err error) *ConflictError {
	return &ConflictError{Err: err}
}

// IsInput reports whether any error in the chain is an InputError.
func IsInput(err error) bool {
	var e *InputError
	return errors.As(err, &e)
}

// IsConfig reports whether any error in the chain is a ConfigError.
func IsConfig(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// IsPersistence reports whether any error in the chain is a PersistenceError.
func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}

// IsConflict reports whether any error in the chain is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}
