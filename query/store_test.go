package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RollbackRestoresPriorState(t *testing.T) {
	s := newStore[int, int]()
	a, b := Input("a", 0), Input("b", 0)
	orig := &memo[int, int]{value: 1, verifiedAt: 1, changedAt: 1}
	s.put(a, orig)

	s.begin()
	s.put(a, orig.verified(2))
	s.put(a, orig.verified(3))
	s.put(b, &memo[int, int]{value: 2, verifiedAt: 3, changedAt: 3})
	assert.Equal(t, 2, s.len())

	assert.Equal(t, 2, s.rollback())
	assert.Equal(t, 1, s.len())

	m, ok := s.get(a)
	require.True(t, ok)
	assert.Same(t, orig, m)
	_, ok = s.get(b)
	assert.False(t, ok)
}

func TestStore_CommitKeepsWrites(t *testing.T) {
	s := newStore[int, int]()
	a := Input("a", 0)

	s.begin()
	s.put(a, &memo[int, int]{value: 1})
	s.commit()
	assert.Zero(t, s.rollback())

	_, ok := s.get(a)
	assert.True(t, ok)
}

func TestMemo_VerifiedCopies(t *testing.T) {
	m := &memo[int, int]{value: 5, verifiedAt: 1, changedAt: 1, dependencies: []Key[int]{Input("x", 0)}}
	next := m.verified(4)

	assert.EqualValues(t, 1, m.verifiedAt)
	assert.EqualValues(t, 4, next.verifiedAt)
	assert.EqualValues(t, 1, next.changedAt)
	assert.Equal(t, 5, next.value)
}
