package idle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/surface/memdom"
	"github.com/vango-dev/loom/pkg/vdom"
)

func startLoop(t *testing.T, opts Options) *Loop {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l := New(opts)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()
	t.Cleanup(func() {
		l.Close()
		if err := <-errc; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return l
}

func TestDoRunsOnLoop(t *testing.T) {
	l := startLoop(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if err := l.Post(func() { order = append(order, i) }); err != nil {
			t.Fatal(err)
		}
	}
	var got []int
	if err := l.Do(ctx, func() { got = append(got, order...) }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("tasks ran as %v, want [0 1 2]", got)
	}
}

func TestIdleCallbackGetsBudget(t *testing.T) {
	l := startLoop(t, Options{FrameInterval: time.Millisecond, FrameBudget: 50 * time.Millisecond})

	got := make(chan time.Duration, 1)
	l.RequestIdleCallback(func(d fiber.Deadline) { got <- d.TimeRemaining() })

	select {
	case remaining := <-got:
		if remaining <= 0 || remaining > 50*time.Millisecond {
			t.Errorf("TimeRemaining() = %v, want within (0, 50ms]", remaining)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("idle callback never ran")
	}
}

func TestEngineDrivenByLoop(t *testing.T) {
	l := startLoop(t, Options{FrameInterval: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	doc := memdom.New()
	root := doc.NewRoot("body")
	var eng *fiber.Engine
	var bump func(vdom.Action)
	counter := vdom.Define("Counter", func(h vdom.Hooks, props vdom.Props) *vdom.Element {
		n, update := h.State(0)
		bump = update
		return vdom.P(vdom.Textf("%d", n))
	})

	if err := l.Do(ctx, func() {
		eng = fiber.New(doc, fiber.Options{})
		eng.Start(l)
		if err := eng.Render(vdom.C(counter, nil), root); err != nil {
			t.Error(err)
		}
	}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, l, func() bool { return root.TextContent() == "0" })
	if err := l.Post(func() { bump(func(p any) any { return p.(int) + 1 }) }); err != nil {
		t.Fatal(err)
	}
	waitFor(t, l, func() bool { return root.TextContent() == "1" })
}

// waitFor polls cond on the loop goroutine.
func waitFor(t *testing.T, l *Loop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		if err := l.Do(context.Background(), func() { ok = cond() }); err != nil {
			t.Fatal(err)
		}
		if ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPanicDoesNotStopLoop(t *testing.T) {
	l := startLoop(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.Post(func() { panic("boom") }); err != nil {
		t.Fatal(err)
	}
	var ran atomic.Bool
	if err := l.Do(ctx, func() { ran.Store(true) }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran.Load() {
		t.Error("task after panic did not run")
	}
}

func TestClose(t *testing.T) {
	l := New(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()

	l.Close()
	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, ErrLoopClosed) {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after Close")
	}

	if err := l.Post(func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Post() error = %v, want ErrLoopClosed", err)
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Do() error = %v, want ErrLoopClosed", err)
	}
	if err := l.Run(context.Background()); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Run() after Close error = %v, want ErrLoopClosed", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestRunContextCancel(t *testing.T) {
	l := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
