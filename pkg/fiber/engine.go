package fiber

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vdom"
)

// State is the scheduler state of an Engine.
type State uint8

const (
	StateIdle       State = iota // No work in progress
	StateWorking                 // A work-in-progress tree is being built
	StateCommitting              // Mutations are being applied
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWorking:
		return "Working"
	case StateCommitting:
		return "Committing"
	default:
		return "Unknown"
	}
}

// RootType is the type of every root fiber. The root's host node is the
// mount node passed to Render.
var RootType = vdom.HostType("#root")

// DefaultMinRemaining is the time budget under which WorkLoop yields.
const DefaultMinRemaining = time.Millisecond

// Options configures an Engine.
type Options struct {
	// MinRemaining is the remaining time under which WorkLoop yields.
	// Default: 1ms.
	MinRemaining time.Duration

	// Logger receives debug logs. Default: slog.Default().
	Logger *slog.Logger

	// Observer receives scheduling callbacks. Optional.
	Observer Observer

	// Tracer creates a span per commit. Default: the global otel tracer.
	Tracer trace.Tracer

	// OnError receives errors returned by WorkLoop when the engine is
	// driven by Start. Default: log at error level.
	OnError func(error)
}

// Observer is notified of scheduling events.
type Observer interface {
	UnitStarted(h Handle, t vdom.Type)
	Yielded()
	Committed(stats CommitStats)
	Abandoned()
}

// CommitStats describes one commit.
type CommitStats struct {
	Units      int // Units of work performed for this generation
	Placements int
	Updates    int
	Deletions  int // Host nodes detached
	Duration   time.Duration
}

type deletion struct {
	h    Handle
	prev Effect
}

// Engine owns the scheduler state: the current generation, the
// work-in-progress generation and the next unit of work.
type Engine struct {
	surface Surface
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer

	current   *Generation
	wip       *Generation
	next      Handle
	deletions []deletion
	state     State

	units   int
	started time.Time

	// busy is set while a unit of work or a commit runs. Updates
	// scheduled meanwhile are deferred until it ends.
	busy    bool
	pending bool
	closed  bool
}

// New creates an engine rendering to s.
func New(s Surface, opts Options) *Engine {
	if opts.MinRemaining <= 0 {
		opts.MinRemaining = DefaultMinRemaining
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/vango-dev/loom/pkg/fiber")
	}
	e := &Engine{
		surface: s,
		opts:    opts,
		logger:  logger.With("component", "fiber"),
		tracer:  tracer,
		next:    None,
	}
	if e.opts.OnError == nil {
		e.opts.OnError = func(err error) {
			e.logger.Error("render pass failed", "error", err)
		}
	}
	return e
}

// State returns the scheduler state.
func (e *Engine) State() State {
	return e.state
}

// Pending reports whether a work-in-progress tree is waiting to be finished.
func (e *Engine) Pending() bool {
	return e.wip != nil
}

// Current returns the committed generation, or nil before the first commit.
func (e *Engine) Current() *Generation {
	return e.current
}

// WorkInProgress returns the generation being built, or nil.
func (e *Engine) WorkInProgress() *Generation {
	return e.wip
}

// Render starts a new render pass of el into mount. A pass already in flight
// is abandoned. Rendering into the mount node of the current tree reconciles
// against it; any other mount node starts from scratch.
func (e *Engine) Render(el *vdom.Element, mount HostNode) error {
	if e.closed {
		return errors.New("E005").WithOp("render")
	}
	if el == nil {
		return errors.New("E001").WithOp("render").WithDetail("nil element")
	}
	if mount == nil {
		return errors.New("E001").WithOp("render").WithDetail("nil mount node")
	}
	if err := el.Check(); err != nil {
		return err
	}

	alt := None
	if e.current.Len() > 0 && e.current.At(0).Host == mount {
		alt = 0
	}
	e.begin(Fiber{
		Type:      RootType,
		Props:     vdom.Props{},
		Host:      mount,
		Alternate: alt,
		Children:  []*vdom.Element{el},
	})
	return nil
}

// scheduleUpdate starts a new pass reconciling against the current tree. It
// is called by hook updaters. A pass already in flight is restarted with the
// same root so a pending Render is not lost. Updates requested while a unit
// of work or a commit runs are deferred until the commit.
func (e *Engine) scheduleUpdate() {
	if e.closed {
		return
	}
	if e.busy {
		e.pending = true
		return
	}
	var root Fiber
	switch {
	case e.wip != nil:
		root = *e.wip.At(0)
	case e.current.Len() > 0:
		root = *e.current.At(0)
		root.Alternate = 0
	default:
		return
	}
	e.begin(Fiber{
		Type:      root.Type,
		Props:     root.Props,
		Host:      root.Host,
		Alternate: root.Alternate,
		Children:  root.Children,
	})
}

// begin installs a fresh work-in-progress generation with the given root.
func (e *Engine) begin(root Fiber) {
	if e.wip != nil {
		e.abandon()
	}
	hint := 0
	if e.current != nil {
		hint = e.current.Len()
	}
	root.Parent, root.Child, root.Sibling = None, None, None
	root.Effect = EffectNone
	if root.Alternate != None {
		root.Effect = EffectUpdate
	}

	e.wip = newGeneration(hint)
	e.wip.alloc(root)
	e.next = 0
	e.units = 0
	e.started = time.Now()
	e.state = StateWorking
}

// abandon drops the work-in-progress generation. Nothing of it has reached
// the surface.
func (e *Engine) abandon() {
	for _, d := range e.deletions {
		e.current.At(d.h).Effect = d.prev
	}
	e.wip = nil
	e.next = None
	e.deletions = nil
	e.pending = false
	e.state = StateIdle
	e.logger.Debug("work in progress abandoned", "units", e.units)
	if e.opts.Observer != nil {
		e.opts.Observer.Abandoned()
	}
}

// WorkLoop performs units of work until the tree is exhausted or d reports
// less than MinRemaining. An exhausted tree is committed before returning.
// On error the pass is abandoned and the current tree is left untouched.
func (e *Engine) WorkLoop(d Deadline) error {
	if e.closed {
		return nil
	}
	yield := false
	for e.next != None && !yield {
		next, err := e.runUnit(e.next)
		if err != nil {
			e.abandon()
			return err
		}
		e.next = next
		yield = d.TimeRemaining() < e.opts.MinRemaining
	}

	if e.next == None && e.wip != nil {
		return e.commit()
	}
	if yield {
		e.logger.Debug("yielding", "units", e.units)
		if e.opts.Observer != nil {
			e.opts.Observer.Yielded()
		}
	}
	return nil
}

// maxFlushPasses bounds Flush for components that update state on every
// render.
const maxFlushPasses = 50

// Flush runs work until nothing is pending, including passes scheduled by
// updates made during a render. It fails with E006 when work is still pending
// after maxFlushPasses passes; the pending pass is kept.
func (e *Engine) Flush() error {
	for i := 0; i < maxFlushPasses && e.wip != nil; i++ {
		if err := e.WorkLoop(Unlimited); err != nil {
			return err
		}
	}
	if e.wip != nil {
		return errors.New("E006").WithOp("flush").
			WithDetailf("work still pending after %d passes", maxFlushPasses)
	}
	return nil
}

// Start registers the engine with s. The engine re-registers after every
// invocation, whether or not work remains.
func (e *Engine) Start(s IdleScheduler) {
	var cb func(Deadline)
	cb = func(d Deadline) {
		if e.closed {
			return
		}
		if err := e.WorkLoop(d); err != nil {
			e.opts.OnError(err)
		}
		s.RequestIdleCallback(cb)
	}
	s.RequestIdleCallback(cb)
}

// Close stops the engine. Pending work is dropped and later updates are
// ignored.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	if e.wip != nil {
		e.abandon()
	}
	e.closed = true
}

func (e *Engine) runUnit(h Handle) (next Handle, err error) {
	e.busy = true
	defer func() { e.busy = false }()
	return e.performUnitOfWork(h)
}
