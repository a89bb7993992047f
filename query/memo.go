package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tailored-agentic-units/querydb/revision"
)

// Memo is a snapshot of the cached state of one key.
//
// ChangedAt <= VerifiedAt always holds. Input memos never have dependencies.
// Dependencies are listed in the order they were first fetched by the
// execution that produced Value.
type Memo[A comparable, V comparable] struct {
	Value        V
	VerifiedAt   revision.Revision
	ChangedAt    revision.Revision
	Dependencies []Key[A]
}

// Fresh reports whether the memo was confirmed at the given revision.
func (m Memo[A, V]) Fresh(current revision.Revision) bool {
	return m.VerifiedAt == current
}

func (m Memo[A, V]) String() string {
	deps := make([]string, len(m.Dependencies))
	for i, d := range m.Dependencies {
		deps[i] = d.String()
	}
	return fmt.Sprintf("(value: %v, verified_at: %d, changed_at: %d, dependencies: {%s})",
		m.Value, m.VerifiedAt, m.ChangedAt, strings.Join(deps, ", "))
}

// memo is the stored form. Stored memos are never mutated in place; updates
// replace the pointer so the undo journal can hold the prior value.
type memo[A comparable, V comparable] struct {
	value        V
	verifiedAt   revision.Revision
	changedAt    revision.Revision
	dependencies []Key[A]
}

// verified returns a copy confirmed at rev with value, changedAt and
// dependencies untouched.
func (m *memo[A, V]) verified(rev revision.Revision) *memo[A, V] {
	next := *m
	next.verifiedAt = rev
	return &next
}

func (m *memo[A, V]) snapshot() Memo[A, V] {
	return Memo[A, V]{
		Value:        m.value,
		VerifiedAt:   m.verifiedAt,
		ChangedAt:    m.changedAt,
		Dependencies: slices.Clone(m.dependencies),
	}
}
