package fiber

import (
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vdom"
)

type hookKind uint8

const (
	hookState hookKind = iota + 1
	hookRef
)

func (k hookKind) String() string {
	switch k {
	case hookState:
		return "state"
	case hookRef:
		return "ref"
	default:
		return "unknown"
	}
}

// hookQueue holds the actions enqueued on one state hook. It is shared by the
// hook's records in both generations, so an action enqueued through an
// updater from any render reaches the next one.
type hookQueue struct {
	actions []vdom.Action
}

// hookRecord is one hook of a component fiber. state is the value after
// applying the first applied actions of queue.
type hookRecord struct {
	kind    hookKind
	state   any
	queue   *hookQueue
	applied int
}

// pending returns the number of actions not reflected in state.
func (r *hookRecord) pending() int {
	if r.queue == nil {
		return 0
	}
	return len(r.queue.actions) - r.applied
}

// compact drops the actions already reflected in state. It runs on committed
// records only, when no other generation can still replay them.
func (r *hookRecord) compact() {
	if r.queue == nil || r.applied == 0 {
		return
	}
	rest := r.queue.actions[r.applied:]
	r.queue.actions = append([]vdom.Action(nil), rest...)
	r.applied = 0
}

// hookCursor implements vdom.Hooks for one component invocation.
type hookCursor struct {
	engine *Engine
	prev   []*hookRecord
	hooks  []*hookRecord

	// checked is set when the fiber has an alternate; the hook sequence
	// must then match the alternate's.
	checked bool
	err     *errors.LoomError
}

// previous returns the alternate's record at the current index, recording a
// violation when its kind differs.
func (c *hookCursor) previous(kind hookKind) *hookRecord {
	i := len(c.hooks)
	if !c.checked {
		return nil
	}
	if i >= len(c.prev) {
		c.violation("hook %d (%s) was not declared by the previous render", i, kind)
		return nil
	}
	p := c.prev[i]
	if p.kind != kind {
		c.violation("hook %d was %s, now %s", i, p.kind, kind)
		return nil
	}
	return p
}

func (c *hookCursor) violation(format string, args ...any) {
	if c.err == nil {
		c.err = errors.New("E003").WithDetailf(format, args...)
	}
}

// State implements vdom.Hooks.
func (c *hookCursor) State(initial any) (any, func(vdom.Action)) {
	rec := &hookRecord{kind: hookState, state: initial, queue: &hookQueue{}}
	if prev := c.previous(hookState); prev != nil {
		rec.state = prev.state
		rec.queue = prev.queue
		for _, action := range prev.queue.actions[prev.applied:] {
			rec.state = action(rec.state)
		}
	}
	rec.applied = len(rec.queue.actions)
	c.hooks = append(c.hooks, rec)

	e, q := c.engine, rec.queue
	return rec.state, func(action vdom.Action) {
		if e.closed || action == nil {
			return
		}
		q.actions = append(q.actions, action)
		e.scheduleUpdate()
	}
}

// Ref implements vdom.Hooks.
func (c *hookCursor) Ref(create func() any) any {
	rec := &hookRecord{kind: hookRef}
	if prev := c.previous(hookRef); prev != nil {
		rec.state = prev.state
	} else {
		rec.state = create()
	}
	c.hooks = append(c.hooks, rec)
	return rec.state
}

// finish reports a hook order violation detected during the invocation.
func (c *hookCursor) finish(t vdom.Type) error {
	if c.err == nil && c.checked && len(c.hooks) != len(c.prev) {
		c.violation("%d hooks declared, previous render declared %d", len(c.hooks), len(c.prev))
	}
	if c.err != nil {
		return c.err.WithOp(t.String())
	}
	return nil
}

// Updater queues a transformation of a typed state cell.
type Updater[T any] func(fn func(prev T) T)

// Set replaces the state with v.
func (u Updater[T]) Set(v T) {
	u(func(T) T { return v })
}

// UseState declares a typed state cell.
//
//	count, update := fiber.UseState(h, 0)
//	vdom.OnClick(func() { update(func(n int) int { return n + 1 }) })
func UseState[T any](h vdom.Hooks, initial T) (T, Updater[T]) {
	v, update := h.State(initial)
	value, _ := v.(T)
	return value, func(fn func(prev T) T) {
		update(func(prev any) any {
			p, _ := prev.(T)
			return fn(p)
		})
	}
}

// UseReducer declares a state cell updated by dispatching actions through
// reducer.
func UseReducer[S, A any](h vdom.Hooks, reducer func(S, A) S, initial S) (S, func(A)) {
	state, update := UseState(h, initial)
	return state, func(action A) {
		update(func(prev S) S { return reducer(prev, action) })
	}
}

// Ref is a mutable cell that survives renders.
type Ref[T any] struct {
	Current T
}

// UseRef declares a Ref. Writing to it does not schedule a render.
func UseRef[T any](h vdom.Hooks, initial T) *Ref[T] {
	return h.Ref(func() any { return &Ref[T]{Current: initial} }).(*Ref[T])
}
