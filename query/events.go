package query

import "github.com/tailored-agentic-units/querydb/observability"

// Engine event types. Data always carries "database" and "depth" (the Fetch
// nesting level, 0 outside any fetch) and, except for EventRollback, "key".
const (
	EventInputSet        observability.EventType = "query.input.set"
	EventFetch           observability.EventType = "query.fetch"
	EventMemoRead        observability.EventType = "query.memo.read"
	EventMemoInput       observability.EventType = "query.memo.input"
	EventMemoFresh       observability.EventType = "query.memo.fresh"
	EventCheckStart      observability.EventType = "query.deps.check.start"
	EventDependency      observability.EventType = "query.dep.changed_at"
	EventCheckComplete   observability.EventType = "query.deps.check.complete"
	EventExecuteStart    observability.EventType = "query.execute.start"
	EventExecuteComplete observability.EventType = "query.execute.complete"
	EventValueCompare    observability.EventType = "query.value.compare"
	EventMemoStore       observability.EventType = "query.memo.store"
	EventCycle           observability.EventType = "query.cycle"
	EventRollback        observability.EventType = "query.rollback"
	EventError           observability.EventType = "query.error"
)
