package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsNamespace prefixes metric names when no namespace is given.
const DefaultMetricsNamespace = "querydb"

// MetricsObserver counts events in a Prometheus counter labelled by event
// type and severity, e.g. querydb_events_total{type="query.memo.fresh"}.
type MetricsObserver struct {
	events *prometheus.CounterVec
}

// NewMetricsObserver registers the events counter with reg, or with
// prometheus.DefaultRegisterer when reg is nil. Registering twice against the
// same registerer reuses the existing counter.
func NewMetricsObserver(reg prometheus.Registerer, namespace string) (*MetricsObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Total diagnostic events by type and severity",
	}, []string{"type", "level"})

	if err := reg.Register(events); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		events = existing
	}

	return &MetricsObserver{events: events}, nil
}

// Counter returns the underlying counter for the given event type and level.
func (o *MetricsObserver) Counter(typ EventType, level Level) prometheus.Counter {
	return o.events.WithLabelValues(string(typ), level.String())
}

func (o *MetricsObserver) OnEvent(_ context.Context, event Event) {
	o.Counter(event.Type, event.Level).Inc()
}
