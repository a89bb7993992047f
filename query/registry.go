package query

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Func computes the value of a derived query.
//
// A Func must be pure with respect to everything except values obtained by
// calling db.Fetch: it may not read or mutate outside state and must not call
// SetInput. Errors returned by db.Fetch must be returned (optionally wrapped)
// so that cycles and unset inputs abort the whole fetch. Purity is not
// checked at runtime.
type Func[A comparable, V comparable] func(ctx context.Context, db *Database[A, V], args A) (V, error)

// Registry maps derived QueryIDs to their functions. It is populated at
// bootstrap and copied into a Database by New; later changes to the
// Registry do not affect existing databases.
type Registry[A comparable, V comparable] struct {
	funcs map[QueryID]Func[A, V]
}

// NewRegistry creates an empty Registry.
func NewRegistry[A comparable, V comparable]() *Registry[A, V] {
	return &Registry[A, V]{funcs: make(map[QueryID]Func[A, V])}
}

// Register adds a derived query function.
// Returns ErrAlreadyRegistered if id already has a function.
func (r *Registry[A, V]) Register(id QueryID, fn Func[A, V]) error {
	if err := validate(id, fn); err != nil {
		return err
	}
	if _, exists := r.funcs[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}

	if r.funcs == nil {
		r.funcs = make(map[QueryID]Func[A, V])
	}
	r.funcs[id] = fn
	return nil
}

// Replace swaps the function registered for id.
// Returns ErrNotRegistered if id has no function.
func (r *Registry[A, V]) Replace(id QueryID, fn Func[A, V]) error {
	if err := validate(id, fn); err != nil {
		return err
	}
	if _, exists := r.funcs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}

	r.funcs[id] = fn
	return nil
}

// Lookup returns the function registered for id.
func (r *Registry[A, V]) Lookup(id QueryID) (Func[A, V], bool) {
	fn, exists := r.funcs[id]
	return fn, exists
}

// Has reports whether id is a registered derived query.
func (r *Registry[A, V]) Has(id QueryID) bool {
	_, exists := r.funcs[id]
	return exists
}

// List returns the registered ids in sorted order.
func (r *Registry[A, V]) List() []QueryID {
	return slices.Sorted(maps.Keys(r.funcs))
}

func (r *Registry[A, V]) clone() *Registry[A, V] {
	if r == nil {
		return NewRegistry[A, V]()
	}
	return &Registry[A, V]{funcs: maps.Clone(r.funcs)}
}

func validate[A comparable, V comparable](id QueryID, fn Func[A, V]) error {
	if id == "" {
		return ErrEmptyQueryID
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilFunc, id)
	}
	return nil
}
