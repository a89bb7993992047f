package query

// frame accumulates the direct dependencies of one in-flight execution.
type frame[A comparable] struct {
	keys []Key[A]
	seen map[Key[A]]struct{}
}

func (f *frame[A]) record(key Key[A]) {
	if _, ok := f.seen[key]; ok {
		return
	}
	f.seen[key] = struct{}{}
	f.keys = append(f.keys, key)
}

// tracker is the dependency tracker: a stack of frames, one per in-flight
// execution or dependency validation, plus the set of keys whose own
// execution is currently running.
type tracker[A comparable] struct {
	frames []*frame[A]
	open   map[Key[A]]struct{}
}

func newTracker[A comparable]() *tracker[A] {
	return &tracker[A]{open: make(map[Key[A]]struct{})}
}

// push begins a new frame with an empty dependency set.
func (t *tracker[A]) push() *frame[A] {
	f := &frame[A]{seen: make(map[Key[A]]struct{})}
	t.frames = append(t.frames, f)
	return f
}

// pop ends the innermost frame and returns its dependencies in first-fetch order.
func (t *tracker[A]) pop() []Key[A] {
	n := len(t.frames)
	if n == 0 {
		return nil
	}
	f := t.frames[n-1]
	t.frames[n-1] = nil
	t.frames = t.frames[:n-1]
	return f.keys
}

// record adds key to the innermost frame only. Outside any frame it is a no-op.
func (t *tracker[A]) record(key Key[A]) {
	if n := len(t.frames); n > 0 {
		t.frames[n-1].record(key)
	}
}

func (t *tracker[A]) depth() int {
	return len(t.frames)
}

func (t *tracker[A]) active() bool {
	return len(t.frames) > 0
}

// enter marks key's execution as running.
func (t *tracker[A]) enter(key Key[A]) {
	t.open[key] = struct{}{}
}

func (t *tracker[A]) leave(key Key[A]) {
	delete(t.open, key)
}

func (t *tracker[A]) running(key Key[A]) bool {
	_, ok := t.open[key]
	return ok
}
