package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/querydb/fees"
)

const intro = `Contrived setup: you own a company that provides training services, and need to quote
a subscription fee to potential customers.

The calculation is very simple: you have a fixed yearly base fee, but thanks to government funding
can provide a discounted price to school-aged customers.

The database has three inputs:
    * base_fee()
    * discount_amount()
    * discount_age_limit()

And two derived queries:
    * one_year_fee(age) = if age <= discount_age_limit { base_fee - discount_amount } else { base_fee }
    * two_year_fee(age) = one_year_fee(age) + one_year_fee(age + 1)

Below we set the inputs, run the derived queries for a few ages, then change some inputs and
rerun, noting where cached values are reused and why others are recomputed.

Lines without leading '*'s are the engine's own trace.`

// step is one stage of the walkthrough: a note, then an action.
type step struct {
	note string
	run  func(ctx context.Context) error
}

func expect(quote func(context.Context, fees.Years) (fees.Dollars, error), age fees.Years, want fees.Dollars) func(context.Context) error {
	return func(ctx context.Context) error {
		fee, err := quote(ctx, age)
		if err != nil {
			return err
		}
		if fee != want {
			return fmt.Errorf("expected %d for age %d, got %d", want, age, fee)
		}
		return nil
	}
}

func steps(db *fees.Database) []step {
	return []step{
		{
			note: "Before we can query fees we need to set the input values.",
			run: func(ctx context.Context) error {
				if err := db.SetBaseFee(ctx, 100); err != nil {
					return err
				}
				if err := db.SetDiscountAmount(ctx, 30); err != nil {
					return err
				}
				return db.SetDiscountAgeLimit(ctx, 16)
			},
		},
		{
			note: `16 is the maximum age for a young person's discount, so the one year fee for a 16 year old
			is base_fee - discount_amount.`,
			run: expect(db.OneYearFee, 16, 70),
		},
		{
			note: `17 is greater than the maximum age for a young person's discount, so the one year fee for
			a 17 year old is base_fee.`,
			run: expect(db.OneYearFee, 17, 100),
		},
		{
			note: `To compute the two year fee for a 17 year old we need the one year fees for a 17 and an 18
			year old. The first is already cached, so one_year_fee(17) is reused and one_year_fee(18) is computed.`,
			run: expect(db.TwoYearFee, 17, 200),
		},
		{
			note: "Update the discount provided to people under the discount age limit.",
			run: func(ctx context.Context) error {
				return db.SetDiscountAmount(ctx, 40)
			},
		},
		{
			note: `The memo for one_year_fee(17) is out of date, as the revision has increased since it was last
			verified. However, neither the age limit nor the base fee has changed, so its value is still valid.`,
			run: expect(db.OneYearFee, 17, 100),
		},
		{
			note: `As 16 <= discount_age_limit we will spot that one of the inputs to one_year_fee(16) has changed
			and have to recompute.`,
			run: expect(db.OneYearFee, 16, 60),
		},
		{
			note: "Government funding criteria have changed: we can now also provide discounts to 17 year olds.",
			run: func(ctx context.Context) error {
				return db.SetDiscountAgeLimit(ctx, 17)
			},
		},
		{
			note: `Both one_year_fee(17) and one_year_fee(18) read the age limit, so both may have changed and
			must be rerun to tell. one_year_fee(18) keeps its value but one_year_fee(17) does not, so
			two_year_fee(17) is recomputed as well.`,
			run: expect(db.TwoYearFee, 17, 160),
		},
	}
}

func runWalkthrough(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := newSession(out)
	if err != nil {
		return err
	}
	if err := walk(ctx, out, s.db); err != nil {
		return err
	}
	return s.close(ctx, out)
}

func walk(ctx context.Context, w io.Writer, db *fees.Database) error {
	note(w, intro)
	for _, st := range steps(db) {
		note(w, st.note)
		if err := st.run(ctx); err != nil {
			return err
		}
	}
	return nil
}
