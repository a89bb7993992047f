package observability

import "context"

// NoOpObserver drops every event. New databases without a configured
// observer use it.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

// MultiObserver delivers each event to every observer it holds, in order.
// One database can then feed logs, metrics and traces at the same time.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver skips nil entries.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, obs := range observers {
		m.Add(obs)
	}
	return m
}

// Add appends obs. A nil obs is ignored.
func (m *MultiObserver) Add(obs Observer) {
	if obs != nil {
		m.observers = append(m.observers, obs)
	}
}

// Len reports how many observers receive events.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// LevelFilter forwards only events at or above a minimum level.
type LevelFilter struct {
	threshold Level
	next      Observer
}

// NewLevelFilter wraps next so it only sees events with Level >= threshold.
func NewLevelFilter(threshold Level, next Observer) *LevelFilter {
	if next == nil {
		next = NoOpObserver{}
	}
	return &LevelFilter{threshold: threshold, next: next}
}

func (f *LevelFilter) OnEvent(ctx context.Context, event Event) {
	if event.Level < f.threshold {
		return
	}
	f.next.OnEvent(ctx, event)
}
