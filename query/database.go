// Package query implements a demand-driven incremental query database.
//
// A Database memoizes the results of pure functions (derived queries) over
// host-supplied values (input queries). Setting an input advances a revision
// counter; nothing is recomputed eagerly. When a key is fetched its memo is
// re-validated lazily: a memo verified at the current revision is returned
// as-is, otherwise its recorded dependencies are fetched in order and the
// function is only re-run if one of them changed after the memo was last
// verified. A recomputed value equal to the previous one keeps its old
// changed-at revision, so dependents see no change (early cutoff).
//
//	reg := query.NewRegistry[int, int]()
//	reg.Register("double", func(ctx context.Context, db *query.Database[int, int], n int) (int, error) {
//	    v, err := db.Fetch(ctx, query.Input("x", 0))
//	    return v * 2, err
//	})
//	cfg := query.DefaultConfig("example")
//	db, err := query.New(&cfg, reg)
//	db.SetInput(ctx, query.Input("x", 0), 21)
//	v, err := db.Fetch(ctx, query.Derived("double", 0)) // 42
//
// A Database is single-threaded and not safe for concurrent use.
package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/querydb/observability"
	"github.com/tailored-agentic-units/querydb/revision"
)

const tracerName = "github.com/tailored-agentic-units/querydb/query"

type options struct {
	observer observability.Observer
	tracer   trace.Tracer
}

// Option configures a Database after config-driven initialization.
type Option func(*options)

// WithObserver overrides the config-resolved observer. A nil observer
// discards events.
func WithObserver(o observability.Observer) Option {
	return func(opts *options) {
		if o == nil {
			o = observability.NoOpObserver{}
		}
		opts.observer = o
	}
}

// WithTracer overrides the global OpenTelemetry tracer used for top-level
// Fetch and SetInput spans.
func WithTracer(t trace.Tracer) Option {
	return func(opts *options) { opts.tracer = t }
}

// Database owns the revision clock, memo store, dependency tracker and
// function registry.
type Database[A comparable, V comparable] struct {
	id       string
	name     string
	clock    *revision.Clock
	store    *store[A, V]
	tracker  *tracker[A]
	registry *Registry[A, V]
	observer observability.Observer
	tracer   trace.Tracer
	calls    int
}

// New creates a Database from configuration. The registry is copied, so it
// must be fully populated before New is called. A nil cfg uses
// DefaultConfig("").
func New[A comparable, V comparable](cfg *Config, registry *Registry[A, V], opts ...Option) (*Database[A, V], error) {
	if cfg == nil {
		def := DefaultConfig("")
		cfg = &def
	}

	var observer observability.Observer = observability.NoOpObserver{}
	if cfg.Observer != "" {
		obs, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		observer = obs
	}

	o := options{
		observer: observer,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Database[A, V]{
		id:       uuid.Must(uuid.NewV7()).String(),
		name:     cfg.Name,
		clock:    revision.NewClock(),
		store:    newStore[A, V](),
		tracker:  newTracker[A](),
		registry: registry.clone(),
		observer: o.observer,
		tracer:   o.tracer,
	}, nil
}

// ID returns the unique database identifier.
func (db *Database[A, V]) ID() string {
	return db.id
}

// Name returns the configured database name.
func (db *Database[A, V]) Name() string {
	return db.name
}

// Revision returns the current revision.
func (db *Database[A, V]) Revision() revision.Revision {
	return db.clock.Current()
}

// Memo returns a copy of the memo stored for key. It does not validate the
// memo and is not recorded as a dependency.
func (db *Database[A, V]) Memo(key Key[A]) (Memo[A, V], bool) {
	m, ok := db.store.get(key)
	if !ok {
		return Memo[A, V]{}, false
	}
	return m.snapshot(), true
}

// Len returns the number of stored memos.
func (db *Database[A, V]) Len() int {
	return db.store.len()
}

// Queries lists the registered derived query ids.
func (db *Database[A, V]) Queries() []QueryID {
	return db.registry.List()
}

func (db *Database[A, V]) emit(ctx context.Context, typ observability.EventType, level observability.Level, source string, data map[string]any) {
	data["database"] = db.name
	data["depth"] = db.calls
	db.observer.OnEvent(ctx, observability.NewEvent(typ, level, source, data))
}

func (db *Database[A, V]) fail(ctx context.Context, source string, key Key[A], err error) error {
	db.emit(ctx, EventError, observability.LevelError, source, map[string]any{
		"key":   key.String(),
		"error": err.Error(),
	})
	return newKeyError(key, err)
}
