// Package fees quotes training subscription fees on top of an incremental
// query database.
//
// A yearly base fee applies to everyone; customers at or below the discount
// age limit get discount_amount off. Quotes are derived queries, so changing
// an input only re-runs the quotes that actually read it.
package fees

import (
	"context"

	"github.com/tailored-agentic-units/querydb/query"
	"github.com/tailored-agentic-units/querydb/revision"
)

type (
	Dollars = int
	Years   = int
)

// Query ids.
const (
	BaseFeeID          query.QueryID = "base_fee"
	DiscountAmountID   query.QueryID = "discount_amount"
	DiscountAgeLimitID query.QueryID = "discount_age_limit"
	OneYearFeeID       query.QueryID = "one_year_fee"
	TwoYearFeeID       query.QueryID = "two_year_fee"
)

// Input keys. Inputs take no arguments.
var (
	BaseFee          = query.Input[Years](BaseFeeID, 0)
	DiscountAmount   = query.Input[Years](DiscountAmountID, 0)
	DiscountAgeLimit = query.Input[Years](DiscountAgeLimitID, 0)
)

// OneYearFee is the key of the one year quote for a customer of the given age.
func OneYearFee(age Years) query.Key[Years] {
	return query.Derived(OneYearFeeID, age)
}

// TwoYearFee is the key of the two year quote for a customer of the given age.
func TwoYearFee(age Years) query.Key[Years] {
	return query.Derived(TwoYearFeeID, age)
}

// Engine is the query database the fee queries run on.
type Engine = query.Database[Years, Dollars]

// Registry returns a registry holding the fee queries.
func Registry() *query.Registry[Years, Dollars] {
	reg := query.NewRegistry[Years, Dollars]()
	// Both ids are fresh on a new registry.
	_ = reg.Register(OneYearFeeID, oneYearFee)
	_ = reg.Register(TwoYearFeeID, twoYearFee)
	return reg
}

func oneYearFee(ctx context.Context, db *Engine, age Years) (Dollars, error) {
	limit, err := db.Fetch(ctx, DiscountAgeLimit)
	if err != nil {
		return 0, err
	}
	base, err := db.Fetch(ctx, BaseFee)
	if err != nil {
		return 0, err
	}
	if age > limit {
		return base, nil
	}

	discount, err := db.Fetch(ctx, DiscountAmount)
	if err != nil {
		return 0, err
	}
	return base - discount, nil
}

// twoYearFee equals twice oneYearFee unless the customer crosses the
// discount age limit during the second year.
func twoYearFee(ctx context.Context, db *Engine, age Years) (Dollars, error) {
	thisYear, err := db.Fetch(ctx, OneYearFee(age))
	if err != nil {
		return 0, err
	}
	nextYear, err := db.Fetch(ctx, OneYearFee(age+1))
	if err != nil {
		return 0, err
	}
	return thisYear + nextYear, nil
}

// Database is a typed facade over the fee queries.
type Database struct {
	engine *Engine
}

// New creates a fee Database. A nil cfg uses query.DefaultConfig("fees").
func New(cfg *query.Config, opts ...query.Option) (*Database, error) {
	if cfg == nil {
		def := query.DefaultConfig("fees")
		cfg = &def
	}

	engine, err := query.New(cfg, Registry(), opts...)
	if err != nil {
		return nil, err
	}
	return &Database{engine: engine}, nil
}

// Engine exposes the underlying query database for inspection.
func (d *Database) Engine() *Engine {
	return d.engine
}

// Revision returns the current revision.
func (d *Database) Revision() revision.Revision {
	return d.engine.Revision()
}

func (d *Database) SetBaseFee(ctx context.Context, fee Dollars) error {
	return d.engine.SetInput(ctx, BaseFee, fee)
}

func (d *Database) SetDiscountAmount(ctx context.Context, amount Dollars) error {
	return d.engine.SetInput(ctx, DiscountAmount, amount)
}

func (d *Database) SetDiscountAgeLimit(ctx context.Context, age Years) error {
	return d.engine.SetInput(ctx, DiscountAgeLimit, age)
}

func (d *Database) BaseFee(ctx context.Context) (Dollars, error) {
	return d.engine.Fetch(ctx, BaseFee)
}

func (d *Database) DiscountAmount(ctx context.Context) (Dollars, error) {
	return d.engine.Fetch(ctx, DiscountAmount)
}

func (d *Database) DiscountAgeLimit(ctx context.Context) (Years, error) {
	return d.engine.Fetch(ctx, DiscountAgeLimit)
}

// OneYearFee quotes one year of training for a customer of the given age.
func (d *Database) OneYearFee(ctx context.Context, age Years) (Dollars, error) {
	return d.engine.Fetch(ctx, OneYearFee(age))
}

// TwoYearFee quotes two years of training for a customer of the given age.
func (d *Database) TwoYearFee(ctx context.Context, age Years) (Dollars, error) {
	return d.engine.Fetch(ctx, TwoYearFee(age))
}
