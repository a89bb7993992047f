package query

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped in a *KeyError) by Fetch and SetInput.
var (
	// ErrUnsetInput reports a fetch of an input key that was never set.
	ErrUnsetInput = errors.New("input has not been set")
	// ErrCycleDetected reports a fetch of a key whose own execution is still running.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrInvalidMutation reports SetInput on a derived key or while a query is running.
	ErrInvalidMutation = errors.New("invalid mutation")
	// ErrWrongKeyKind reports a derived key with no registered function, or an
	// input key whose QueryID is registered as a derived function.
	ErrWrongKeyKind = errors.New("wrong key kind")
)

// Sentinel errors for registry operations.
var (
	ErrEmptyQueryID      = errors.New("query id is empty")
	ErrNilFunc           = errors.New("query function is nil")
	ErrAlreadyRegistered = errors.New("query already registered")
	ErrNotRegistered     = errors.New("query not registered")
)

// KeyError records which key an engine failure is about.
type KeyError struct {
	Key  string
	Kind Kind
	Err  error
}

func newKeyError[A comparable](key Key[A], err error) *KeyError {
	return &KeyError{Key: key.String(), Kind: key.Kind, Err: err}
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.Err, e.Kind, e.Key)
}

// Unwrap enables errors.Is against the sentinel errors.
func (e *KeyError) Unwrap() error {
	return e.Err
}
