// Package revision provides the logical clock that orders input changes.
//
// A Revision names a point in time at which the set of input values may have
// changed. Revisions start at Initial and advance by exactly one per input
// mutation; they never decrease.
package revision

import "strconv"

// Revision is a totally ordered point in the input history.
type Revision uint64

// Initial is the revision of a freshly created clock, before any input is set.
const Initial Revision = 0

func (r Revision) String() string {
	return strconv.FormatUint(uint64(r), 10)
}

// Clock is a monotonically increasing revision counter. The zero value is a
// clock at Initial. Not safe for concurrent use.
type Clock struct {
	current Revision
}

// NewClock returns a clock positioned at Initial.
func NewClock() *Clock {
	return &Clock{current: Initial}
}

// Current returns the current revision without side effects.
func (c *Clock) Current() Revision {
	return c.current
}

// Advance moves the clock forward by one and returns the new revision.
func (c *Clock) Advance() Revision {
	c.current++
	return c.current
}
