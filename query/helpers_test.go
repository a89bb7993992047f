package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/querydb/observability"
	"github.com/tailored-agentic-units/querydb/query"
)

type (
	testDB       = query.Database[int, int]
	testKey      = query.Key[int]
	testRegistry = query.Registry[int, int]
)

var (
	baseFee          = query.Input[int]("base_fee", 0)
	discountAmount   = query.Input[int]("discount_amount", 0)
	discountAgeLimit = query.Input[int]("discount_age_limit", 0)
)

func oneYearFee(age int) testKey { return query.Derived("one_year_fee", age) }
func twoYearFee(age int) testKey { return query.Derived("two_year_fee", age) }

// calls counts executions per query id.
type calls map[query.QueryID]int

// feeRegistry registers the fee quoting queries used across tests.
func feeRegistry(t *testing.T, c calls) *testRegistry {
	t.Helper()

	reg := query.NewRegistry[int, int]()
	require.NoError(t, reg.Register("one_year_fee", func(ctx context.Context, db *testDB, age int) (int, error) {
		c["one_year_fee"]++
		limit, err := db.Fetch(ctx, discountAgeLimit)
		if err != nil {
			return 0, err
		}
		base, err := db.Fetch(ctx, baseFee)
		if err != nil {
			return 0, err
		}
		if age <= limit {
			discount, err := db.Fetch(ctx, discountAmount)
			if err != nil {
				return 0, err
			}
			return base - discount, nil
		}
		return base, nil
	}))
	require.NoError(t, reg.Register("two_year_fee", func(ctx context.Context, db *testDB, age int) (int, error) {
		c["two_year_fee"]++
		thisYear, err := db.Fetch(ctx, oneYearFee(age))
		if err != nil {
			return 0, err
		}
		nextYear, err := db.Fetch(ctx, oneYearFee(age+1))
		if err != nil {
			return 0, err
		}
		return thisYear + nextYear, nil
	}))
	return reg
}

type captureObserver struct {
	events []observability.Event
}

func (c *captureObserver) OnEvent(_ context.Context, event observability.Event) {
	c.events = append(c.events, event)
}

func (c *captureObserver) count(typ observability.EventType) int {
	n := 0
	for _, e := range c.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (c *captureObserver) reset() {
	c.events = nil
}

func newDB(t *testing.T, reg *testRegistry, opts ...query.Option) (*testDB, *captureObserver) {
	t.Helper()

	capture := &captureObserver{}
	cfg := query.DefaultConfig("test")
	cfg.Observer = "noop"

	opts = append([]query.Option{query.WithObserver(capture)}, opts...)
	db, err := query.New(&cfg, reg, opts...)
	require.NoError(t, err)
	return db, capture
}

func mustSet(t *testing.T, db *testDB, key testKey, value int) {
	t.Helper()
	require.NoError(t, db.SetInput(context.Background(), key, value))
}

func mustFetch(t *testing.T, db *testDB, key testKey) int {
	t.Helper()
	v, err := db.Fetch(context.Background(), key)
	require.NoError(t, err)
	return v
}

func mustMemo(t *testing.T, db *testDB, key testKey) query.Memo[int, int] {
	t.Helper()
	m, ok := db.Memo(key)
	require.True(t, ok, "no memo for %s", key)
	return m
}

// setFees sets base_fee, discount_amount and discount_age_limit at
// revisions 1, 2 and 3.
func setFees(t *testing.T, db *testDB) {
	t.Helper()
	mustSet(t, db, baseFee, 100)
	mustSet(t, db, discountAmount, 30)
	mustSet(t, db, discountAgeLimit, 16)
}
