package fiber

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/loom/pkg/vdom"
)

func TestGenerationLinks(t *testing.T) {
	g := newGeneration(0)
	root := g.alloc(Fiber{Type: RootType, Host: "mount", Parent: None, Child: None, Sibling: None})
	a := g.alloc(Fiber{Type: vdom.HostType("a"), Parent: root, Child: None, Sibling: None})
	b := g.alloc(Fiber{Type: vdom.HostType("b"), Parent: root, Child: None, Sibling: None})
	a1 := g.alloc(Fiber{Type: vdom.TextType, Parent: a, Child: None, Sibling: None})
	g.At(root).Child = a
	g.At(a).Sibling = b
	g.At(a).Child = a1

	var order []Handle
	g.Walk(func(h Handle, f *Fiber) bool {
		order = append(order, h)
		return true
	})
	if diff := cmp.Diff([]Handle{root, a, a1, b}, order); diff != "" {
		t.Errorf("Walk() order mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]Handle{a, b}, g.ChildHandles(root)); diff != "" {
		t.Errorf("ChildHandles() mismatch (-want +got):\n%s", diff)
	}
	if got := g.hostParent(a1); got != nil {
		t.Errorf("hostParent(a1) = %v, want nil (a has no host yet)", got)
	}
	if got := g.hostParent(b); got != "mount" {
		t.Errorf("hostParent(b) = %v, want mount", got)
	}
	if got := g.nextPreOrder(a, false); got != b {
		t.Errorf("nextPreOrder(a, false) = %d, want %d", got, b)
	}
	if got := g.nextPreOrder(b, true); got != None {
		t.Errorf("nextPreOrder(b) = %d, want None", got)
	}

	visited := 0
	g.Walk(func(Handle, *Fiber) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("Walk() visited %d fibers after stop, want 1", visited)
	}
}

func TestEmptyGeneration(t *testing.T) {
	var g *Generation
	if g.Len() != 0 || g.Root() != None {
		t.Errorf("nil generation: Len() = %d, Root() = %d", g.Len(), g.Root())
	}
}

func TestEffectString(t *testing.T) {
	tests := []struct {
		e    Effect
		want string
	}{
		{EffectNone, "None"},
		{EffectPlace, "Place"},
		{EffectUpdate, "Update"},
		{EffectDelete, "Delete"},
		{Effect(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("Effect(%d).String() = %q, want %q", tt.e, got, tt.want)
		}
	}
}

func TestBudget(t *testing.T) {
	d := Budget(3)
	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, d.TimeRemaining() > 0)
	}
	if diff := cmp.Diff([]bool{true, true, false, false}, got); diff != "" {
		t.Errorf("Budget(3) samples mismatch (-want +got):\n%s", diff)
	}
	if Unlimited.TimeRemaining() < time.Hour {
		t.Error("Unlimited should never run out")
	}
	if At(time.Now().Add(-time.Second)).TimeRemaining() > 0 {
		t.Error("expired deadline reports time remaining")
	}
}
