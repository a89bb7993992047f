package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/querydb/observability"
	"github.com/tailored-agentic-units/querydb/revision"
)

const sourceFetch = "query.Fetch"

// Fetch returns the value of key at the current revision, reusing the memo
// when it can be shown to be current and re-running the registered function
// otherwise.
//
// When called from inside a query function, key is recorded as a direct
// dependency of that function's execution.
//
// Fetch fails with ErrUnsetInput for an input that was never set,
// ErrCycleDetected when key's own execution is still running, and
// ErrWrongKeyKind when key's kind does not match the registry. A failed
// top-level Fetch leaves the memo store exactly as it found it.
//
// ctx carries trace and logging correlation only. It is not checked for
// cancellation: once started, a fetch runs to completion.
func (db *Database[A, V]) Fetch(ctx context.Context, key Key[A]) (V, error) {
	var zero V

	if db.calls > 0 {
		m, err := db.fetch(ctx, key)
		if err != nil {
			return zero, err
		}
		return m.value, nil
	}

	ctx, span := db.tracer.Start(ctx, sourceFetch, trace.WithAttributes(
		attribute.String("query.key", key.String()),
		attribute.Int64("query.revision", int64(db.clock.Current())),
	))
	defer span.End()

	db.store.begin()
	m, err := db.fetch(ctx, key)
	if err != nil {
		restored := db.store.rollback()
		db.emit(ctx, EventRollback, observability.LevelWarning, sourceFetch, map[string]any{
			"restored": restored,
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	db.store.commit()

	return m.value, nil
}

func (db *Database[A, V]) fetch(ctx context.Context, key Key[A]) (*memo[A, V], error) {
	db.calls++
	defer func() { db.calls-- }()

	db.emit(ctx, EventFetch, observability.LevelVerbose, sourceFetch, map[string]any{
		"key": key.String(),
	})

	if db.tracker.running(key) {
		db.emit(ctx, EventCycle, observability.LevelWarning, sourceFetch, map[string]any{
			"key": key.String(),
		})
		return nil, db.fail(ctx, sourceFetch, key, ErrCycleDetected)
	}

	current := db.clock.Current()

	var (
		m   *memo[A, V]
		err error
	)
	switch key.Kind {
	case KindInput:
		m, err = db.fetchInput(ctx, key, current)
	case KindDerived:
		m, err = db.fetchDerived(ctx, key, current)
	default:
		err = db.fail(ctx, sourceFetch, key, fmt.Errorf("%w: unknown kind %s", ErrWrongKeyKind, key.Kind))
	}
	if err != nil {
		return nil, err
	}

	db.tracker.record(key)
	return m, nil
}

// fetchInput handles input keys. An existing input memo is current until the
// next SetInput on the same key, so it is only re-stamped.
func (db *Database[A, V]) fetchInput(ctx context.Context, key Key[A], current revision.Revision) (*memo[A, V], error) {
	if db.registry.Has(key.Query) {
		return nil, db.fail(ctx, sourceFetch, key, fmt.Errorf("%w: %s is a derived query", ErrWrongKeyKind, key.Query))
	}

	stored, found := db.readMemo(ctx, key)
	if !found {
		return nil, db.fail(ctx, sourceFetch, key, ErrUnsetInput)
	}

	db.emit(ctx, EventMemoInput, observability.LevelVerbose, sourceFetch, map[string]any{
		"key": key.String(),
	})

	if stored.verifiedAt < current {
		next := stored.verified(current)
		db.storeMemo(ctx, sourceFetch, key, stored, next)
		stored = next
	}
	return stored, nil
}

func (db *Database[A, V]) fetchDerived(ctx context.Context, key Key[A], current revision.Revision) (*memo[A, V], error) {
	fn, registered := db.registry.Lookup(key.Query)
	if !registered {
		return nil, db.fail(ctx, sourceFetch, key, fmt.Errorf("%w: no function registered for %s", ErrWrongKeyKind, key.Query))
	}

	stored, found := db.readMemo(ctx, key)
	if found {
		if stored.verifiedAt == current {
			db.emit(ctx, EventMemoFresh, observability.LevelVerbose, sourceFetch, map[string]any{
				"key": key.String(),
			})
			return stored, nil
		}

		changed, err := db.dependenciesChanged(ctx, key, stored)
		if err != nil {
			return nil, err
		}
		if !changed {
			next := stored.verified(current)
			db.storeMemo(ctx, sourceFetch, key, stored, next)
			return next, nil
		}
	}

	value, deps, err := db.execute(ctx, key, fn)
	if err != nil {
		return nil, err
	}

	changedAt := current
	if found {
		same := stored.value == value
		if same {
			changedAt = stored.changedAt
		}
		db.emit(ctx, EventValueCompare, observability.LevelVerbose, sourceFetch, map[string]any{
			"key":      key.String(),
			"old":      stored.value,
			"new":      value,
			"changed":  !same,
			"revision": current,
		})
	}

	next := &memo[A, V]{
		value:        value,
		verifiedAt:   current,
		changedAt:    changedAt,
		dependencies: deps,
	}
	db.storeMemo(ctx, sourceFetch, key, stored, next)
	return next, nil
}

// dependenciesChanged fetches m's dependencies in recorded order and reports
// whether any changed after m was last verified, stopping at the first that
// did. The fetches run inside a scratch frame so they are not recorded as
// dependencies of whatever execution encloses this validation.
func (db *Database[A, V]) dependenciesChanged(ctx context.Context, key Key[A], m *memo[A, V]) (bool, error) {
	db.emit(ctx, EventCheckStart, observability.LevelVerbose, sourceFetch, map[string]any{
		"key":          key.String(),
		"verified_at":  m.verifiedAt,
		"dependencies": len(m.dependencies),
	})

	db.tracker.push()
	defer db.tracker.pop()

	changed := false
	for _, dep := range m.dependencies {
		dm, err := db.fetch(ctx, dep)
		if err != nil {
			return false, err
		}

		db.emit(ctx, EventDependency, observability.LevelVerbose, sourceFetch, map[string]any{
			"key":        key.String(),
			"dependency": dep.String(),
			"changed_at": dm.changedAt,
		})

		if dm.changedAt > m.verifiedAt {
			changed = true
			break
		}
	}

	db.emit(ctx, EventCheckComplete, observability.LevelVerbose, sourceFetch, map[string]any{
		"key":     key.String(),
		"changed": changed,
	})
	return changed, nil
}

// execute runs fn for key in a fresh frame and returns the value with the
// dependencies fetched by this execution alone.
func (db *Database[A, V]) execute(ctx context.Context, key Key[A], fn Func[A, V]) (V, []Key[A], error) {
	db.tracker.enter(key)
	defer db.tracker.leave(key)

	f := db.tracker.push()
	defer db.tracker.pop()

	db.emit(ctx, EventExecuteStart, observability.LevelVerbose, sourceFetch, map[string]any{
		"key": key.String(),
	})

	value, err := fn(ctx, db, key.Args)
	if err != nil {
		db.emit(ctx, EventError, observability.LevelError, sourceFetch, map[string]any{
			"key":   key.String(),
			"error": err.Error(),
		})
		var zero V
		return zero, nil, fmt.Errorf("query %s: %w", key, err)
	}

	db.emit(ctx, EventExecuteComplete, observability.LevelVerbose, sourceFetch, map[string]any{
		"key":          key.String(),
		"dependencies": len(f.keys),
	})
	return value, f.keys, nil
}

func (db *Database[A, V]) readMemo(ctx context.Context, key Key[A]) (*memo[A, V], bool) {
	m, found := db.store.get(key)

	data := map[string]any{
		"key":   key.String(),
		"found": found,
	}
	if found {
		data["memo"] = m.snapshot().String()
	}
	db.emit(ctx, EventMemoRead, observability.LevelVerbose, sourceFetch, data)

	return m, found
}

func (db *Database[A, V]) storeMemo(ctx context.Context, source string, key Key[A], prev, next *memo[A, V]) {
	data := map[string]any{
		"key":     key.String(),
		"memo":    next.snapshot().String(),
		"updated": prev != nil,
	}
	if prev != nil {
		data["previous"] = prev.snapshot().String()
	}
	db.emit(ctx, EventMemoStore, observability.LevelVerbose, source, data)

	db.store.put(key, next)
}
