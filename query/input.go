package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/querydb/observability"
)

const sourceSetInput = "query.SetInput"

// SetInput stores value for an input key and advances the revision. It is
// the only way data changes.
//
// The new memo is always stamped as changed at the new revision, even when
// value equals the previous value: equality only suppresses change for
// derived queries.
//
// SetInput fails with ErrInvalidMutation for a non-input key or when called
// while a Fetch is in progress (for example from inside a query function),
// and with ErrWrongKeyKind when key's QueryID is registered as a derived
// query.
func (db *Database[A, V]) SetInput(ctx context.Context, key Key[A], value V) error {
	if db.calls > 0 || db.tracker.active() {
		return db.fail(ctx, sourceSetInput, key, fmt.Errorf("%w: query evaluation in progress", ErrInvalidMutation))
	}
	if key.Kind != KindInput {
		return db.fail(ctx, sourceSetInput, key, fmt.Errorf("%w: not an input key", ErrInvalidMutation))
	}
	if db.registry.Has(key.Query) {
		return db.fail(ctx, sourceSetInput, key, fmt.Errorf("%w: %s is a derived query", ErrWrongKeyKind, key.Query))
	}

	ctx, span := db.tracer.Start(ctx, sourceSetInput, trace.WithAttributes(
		attribute.String("query.key", key.String()),
	))
	defer span.End()

	rev := db.clock.Advance()
	span.SetAttributes(attribute.Int64("query.revision", int64(rev)))

	db.emit(ctx, EventInputSet, observability.LevelInfo, sourceSetInput, map[string]any{
		"key":      key.String(),
		"value":    value,
		"revision": rev,
	})

	prev, _ := db.store.get(key)
	db.storeMemo(ctx, sourceSetInput, key, prev, &memo[A, V]{
		value:      value,
		verifiedAt: rev,
		changedAt:  rev,
	})
	return nil
}
