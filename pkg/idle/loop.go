// Package idle provides the host scheduling primitive for the engine: a
// single-goroutine loop that runs posted tasks and, once per frame, the idle
// callbacks registered with RequestIdleCallback under a time budget.
package idle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/loom/pkg/fiber"
)

var (
	// ErrLoopClosed is returned when operations are attempted on a closed loop.
	ErrLoopClosed = errors.New("idle: loop is closed")

	// ErrLoopRunning is returned when Run is called on a loop that is already running.
	ErrLoopRunning = errors.New("idle: loop is already running")
)

// Default frame timing.
const (
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultFrameBudget   = 8 * time.Millisecond
)

// Options configures a Loop.
type Options struct {
	// FrameInterval is the period between frames. Default: 16ms.
	FrameInterval time.Duration

	// FrameBudget is the time idle callbacks get per frame. Default: 8ms.
	FrameBudget time.Duration

	// Logger receives task panics. Default: slog.Default().
	Logger *slog.Logger
}

// Loop runs tasks and idle callbacks on one goroutine.
//
// Post and Do are safe for concurrent use. Everything they run, and every
// idle callback, runs on the loop goroutine, so state touched only from there
// needs no locking.
type Loop struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	tasks []func()
	idle  []func(fiber.Deadline)

	wake    chan struct{}
	closing chan struct{}
	once    sync.Once

	running atomic.Bool
	closed  atomic.Bool
	frames  atomic.Int64
}

// New creates a loop. Call Run to start it.
func New(opts Options) *Loop {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.FrameBudget <= 0 {
		opts.FrameBudget = DefaultFrameBudget
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		opts:    opts,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
	}
}

// Post queues fn to run on the loop goroutine. A frame runs right after the
// queued tasks, so work they schedule starts without waiting for the ticker.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed.Load() {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closing:
		return ErrLoopClosed
	}
}

// RequestIdleCallback registers fn for the next frame. Each registration
// runs once.
func (l *Loop) RequestIdleCallback(fn func(fiber.Deadline)) {
	l.mu.Lock()
	l.idle = append(l.idle, fn)
	l.mu.Unlock()
}

// Frames returns the number of frames run so far.
func (l *Loop) Frames() int64 {
	return l.frames.Load()
}

// Run processes tasks and frames until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	ticker := time.NewTicker(l.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.closing:
			return nil
		case <-l.wake:
			l.runTasks()
			l.runFrame()
		case <-ticker.C:
			l.runTasks()
			l.runFrame()
		}
	}
}

// Close stops the loop. Queued tasks are dropped.
func (l *Loop) Close() error {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed.Store(true)
		l.tasks = nil
		l.idle = nil
		l.mu.Unlock()
		close(l.closing)
	})
	return nil
}

func (l *Loop) runTasks() {
	l.mu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, fn := range tasks {
		l.safeExecute(fn)
	}
}

func (l *Loop) runFrame() {
	l.mu.Lock()
	callbacks := l.idle
	l.idle = nil
	l.mu.Unlock()

	l.frames.Add(1)
	d := frameDeadline(time.Now().Add(l.opts.FrameBudget))
	for _, fn := range callbacks {
		l.safeExecute(func() { fn(d) })
	}
}

// safeExecute runs fn, recovering a panic so one task cannot stop the loop.
func (l *Loop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("idle: task panicked", "panic", r)
		}
	}()
	fn()
}

// frameDeadline is the end of the current frame's budget.
type frameDeadline time.Time

// TimeRemaining implements fiber.Deadline.
func (d frameDeadline) TimeRemaining() time.Duration {
	return time.Until(time.Time(d))
}
