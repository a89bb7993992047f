package query_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tailored-agentic-units/querydb/observability"
	"github.com/tailored-agentic-units/querydb/query"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

func TestDatabase_Accessors(t *testing.T) {
	c := calls{}
	db, _ := newDB(t, feeRegistry(t, c))

	_, err := uuid.Parse(db.ID())
	assert.NoError(t, err)
	assert.Equal(t, "test", db.Name())
	assert.Equal(t, []query.QueryID{"one_year_fee", "two_year_fee"}, db.Queries())
	assert.Zero(t, db.Len())

	other, _ := newDB(t, nil)
	assert.NotEqual(t, db.ID(), other.ID())

	_, ok := db.Memo(baseFee)
	assert.False(t, ok)
}

func TestDatabase_MemoIsSnapshot(t *testing.T) {
	c := calls{}
	db, _ := newDB(t, feeRegistry(t, c))
	setFees(t, db)
	mustFetch(t, db, oneYearFee(16))

	m := mustMemo(t, db, oneYearFee(16))
	m.Dependencies[0] = baseFee
	m.Value = 0

	again := mustMemo(t, db, oneYearFee(16))
	assert.Equal(t, discountAgeLimit, again.Dependencies[0])
	assert.Equal(t, 70, again.Value)
	assert.True(t, again.Fresh(db.Revision()))
	assert.Equal(t,
		"(value: 70, verified_at: 3, changed_at: 3, dependencies: {discount_age_limit(), base_fee(), discount_amount()})",
		again.String())
}

func TestDatabase_EventsCarryDatabaseAndDepth(t *testing.T) {
	c := calls{}
	db, obs := newDB(t, feeRegistry(t, c))
	setFees(t, db)
	obs.reset()

	mustFetch(t, db, twoYearFee(16))

	maxDepth := 0
	for _, e := range obs.events {
		assert.Equal(t, "test", e.Data["database"])
		depth, ok := e.Data["depth"].(int)
		require.True(t, ok)
		maxDepth = max(maxDepth, depth)
		assert.Equal(t, "query.Fetch", e.Source)
	}
	assert.Equal(t, 3, maxDepth)
}

func TestDatabase_TracesTopLevelCalls(t *testing.T) {
	recorder, tp := newRecorder(t)
	c := calls{}
	db, _ := newDB(t, feeRegistry(t, c), query.WithTracer(tp.Tracer("test")))

	setFees(t, db)
	mustFetch(t, db, twoYearFee(16))

	spans := recorder.Ended()
	require.Len(t, spans, 4, "nested fetches must not open their own spans")

	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"query.SetInput", "query.SetInput", "query.SetInput", "query.Fetch"}, names)

	fetch := spans[3]
	attrs := attribute.NewSet(fetch.Attributes()...)
	v, ok := attrs.Value("query.key")
	require.True(t, ok)
	assert.Equal(t, "two_year_fee(16)", v.AsString())
	v, ok = attrs.Value("query.revision")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
	assert.Equal(t, codes.Unset, fetch.Status().Code)
}

func TestDatabase_TracesFailedFetch(t *testing.T) {
	recorder, tp := newRecorder(t)
	db, _ := newDB(t, nil, query.WithTracer(tp.Tracer("test")))

	_, err := db.Fetch(context.Background(), query.Input("missing", 0))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, "input has not been set")
}

func TestDatabase_SpanObserver(t *testing.T) {
	recorder, tp := newRecorder(t)
	cfg := query.DefaultConfig("spans")
	cfg.Observer = ""

	db, err := query.New(&cfg, feeRegistry(t, calls{}),
		query.WithTracer(tp.Tracer("test")),
		query.WithObserver(observability.NewSpanObserver()),
	)
	require.NoError(t, err)

	setFees(t, db)
	mustFetch(t, db, oneYearFee(17))

	spans := recorder.Ended()
	require.Len(t, spans, 4)

	fetch := spans[3]
	var names []string
	for _, e := range fetch.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, string(query.EventFetch))
	assert.Contains(t, names, string(query.EventExecuteStart))
	assert.Contains(t, names, string(query.EventMemoStore))

	set := spans[0]
	require.NotEmpty(t, set.Events())
	assert.Equal(t, string(query.EventInputSet), set.Events()[0].Name)
}

func TestDatabase_MetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetricsObserver(reg, "fees")
	require.NoError(t, err)

	c := calls{}
	capture := &captureObserver{}
	db, _ := newDB(t, feeRegistry(t, c), query.WithObserver(observability.NewMultiObserver(metrics, capture)))

	setFees(t, db)
	mustFetch(t, db, oneYearFee(17))
	mustFetch(t, db, oneYearFee(17))

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Counter(query.EventInputSet, observability.LevelInfo)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Counter(query.EventExecuteStart, observability.LevelVerbose)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Counter(query.EventMemoFresh, observability.LevelVerbose)))
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.Counter(query.EventFetch, observability.LevelVerbose)))
	assert.Equal(t, float64(capture.count(query.EventMemoStore)),
		testutil.ToFloat64(metrics.Counter(query.EventMemoStore, observability.LevelVerbose)))
}
