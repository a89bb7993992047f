package query

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tailored-agentic-units/querydb/observability"
)

const textIndent = "|  "

// TextObserver renders engine events as an indented, human-readable trace,
// one line per step of the fetch/validate/recompute procedure:
//
//	Query two_year_fee(17)
//	Existing memo: (value: 200, verified_at: 3, changed_at: 3, dependencies: {...})
//	Checking dependencies to see if any have changed since revision 3, when this memo was last verified
//	|  Query one_year_fee(17)
//
// Events that are not engine events are ignored.
type TextObserver struct {
	w io.Writer
}

// NewTextObserver creates a TextObserver writing to w.
func NewTextObserver(w io.Writer) *TextObserver {
	return &TextObserver{w: w}
}

func (o *TextObserver) OnEvent(_ context.Context, event observability.Event) {
	d := event.Data
	switch event.Type {
	case EventInputSet:
		o.line(d, "Setting %s to %v", d["key"], d["value"])
		o.line(d, "Global revision is now %v", d["revision"])
	case EventFetch:
		o.line(d, "Query %s", d["key"])
	case EventMemoRead:
		if found, _ := d["found"].(bool); found {
			o.line(d, "Existing memo: %s", d["memo"])
		} else {
			o.line(d, "No memo currently exists")
		}
	case EventMemoInput:
		o.line(d, "Memo is valid as this is an input query")
	case EventMemoFresh:
		o.line(d, "Memo is valid as it was verified at the current revision")
	case EventCheckStart:
		o.line(d, "Checking dependencies to see if any have changed since revision %v, when this memo was last verified", d["verified_at"])
	case EventDependency:
		o.line(d, "%sDependency %s last changed at revision %v", textIndent, d["dependency"], d["changed_at"])
	case EventCheckComplete:
		if changed, _ := d["changed"].(bool); changed {
			o.line(d, "Memo is invalid as a dependency has changed")
		} else {
			o.line(d, "Memo is valid as no dependencies have changed")
		}
	case EventExecuteStart:
		o.line(d, "Running query function")
	case EventValueCompare:
		if changed, _ := d["changed"].(bool); changed {
			o.line(d, "New value %v != memo value %v, so updating changed_at to %v", d["new"], d["old"], d["revision"])
		} else {
			o.line(d, "New value %v is the same as the memo value, so not updating changed_at", d["new"])
		}
	case EventMemoStore:
		if updated, _ := d["updated"].(bool); updated {
			o.line(d, "Updating stored memo to: %s", d["memo"])
		} else {
			o.line(d, "Storing memo: %s", d["memo"])
		}
	case EventCycle:
		o.line(d, "Cycle: %s is already being computed", d["key"])
	case EventError:
		o.line(d, "Error: %s", d["error"])
	case EventRollback:
		o.line(d, "Restored %v memo(s) to their state before the failed fetch", d["restored"])
	}
}

func (o *TextObserver) line(data map[string]any, format string, args ...any) {
	depth, _ := data["depth"].(int)
	if depth > 0 {
		depth--
	}
	fmt.Fprintf(o.w, "%s%s\n", strings.Repeat(textIndent, depth), fmt.Sprintf(format, args...))
}
