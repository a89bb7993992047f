package query

import "fmt"

// Kind distinguishes keys whose values are set by the host from keys whose
// values are computed by a registered function.
type Kind uint8

const (
	// KindInput keys are set directly through SetInput.
	KindInput Kind = iota + 1
	// KindDerived keys are computed by the function registered for their QueryID.
	KindDerived
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindDerived:
		return "derived"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// QueryID names an input or a derived query.
type QueryID string

// Key identifies one memo slot: a query together with its arguments. Two keys
// with the same QueryID and different Args are different slots. Keys are
// plain values and are compared with ==.
type Key[A comparable] struct {
	Kind  Kind
	Query QueryID
	Args  A
}

// Input returns the key of an input query.
func Input[A comparable](id QueryID, args A) Key[A] {
	return Key[A]{Kind: KindInput, Query: id, Args: args}
}

// Derived returns the key of a derived query.
func Derived[A comparable](id QueryID, args A) Key[A] {
	return Key[A]{Kind: KindDerived, Query: id, Args: args}
}

// String renders the key as a call, e.g. "one_year_fee(17)". Zero-valued
// arguments render as an empty argument list.
func (k Key[A]) String() string {
	var zero A
	if k.Args == zero {
		return string(k.Query) + "()"
	}
	return fmt.Sprintf("%s(%v)", k.Query, k.Args)
}
