package fiber

import "github.com/vango-dev/loom/pkg/vdom"

// Handle addresses a fiber inside one Generation.
type Handle int32

// None is the absent handle.
const None Handle = -1

// HostNode is an opaque node owned by the rendering surface. Host nodes are
// compared with ==, so surfaces should use pointers or other comparable values.
type HostNode = any

// Effect is the disposition the reconciler assigns to a fiber.
type Effect uint8

const (
	EffectNone   Effect = iota // Nothing to apply
	EffectPlace                // Attach a new host node
	EffectUpdate               // Diff props on a reused host node
	EffectDelete               // Detach; only found on current-generation fibers
)

// String returns the string representation of the Effect.
func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "None"
	case EffectPlace:
		return "Place"
	case EffectUpdate:
		return "Update"
	case EffectDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Fiber is one element instance in one generation.
type Fiber struct {
	Type  vdom.Type
	Props vdom.Props
	Host  HostNode // nil for component fibers

	Parent  Handle
	Child   Handle
	Sibling Handle

	// Alternate is the fiber at the same position in the other generation.
	Alternate Handle

	Effect Effect
	Hooks  []*hookRecord

	// Children are the element children of a host fiber. Component fibers
	// produce theirs by rendering.
	Children []*vdom.Element
}

// IsComponent reports whether the fiber renders through a component.
func (f *Fiber) IsComponent() bool {
	return f.Type.Kind == vdom.KindComponent
}

// HookCount returns the number of hook records on the fiber.
func (f *Fiber) HookCount() int {
	return len(f.Hooks)
}

// Generation is an arena holding one fiber tree. The root is always handle 0.
// Pointers returned by At are invalidated by the next allocation.
type Generation struct {
	fibers []Fiber
}

func newGeneration(sizeHint int) *Generation {
	if sizeHint < 8 {
		sizeHint = 8
	}
	return &Generation{fibers: make([]Fiber, 0, sizeHint)}
}

func (g *Generation) alloc(f Fiber) Handle {
	g.fibers = append(g.fibers, f)
	return Handle(len(g.fibers) - 1)
}

// At returns the fiber for h.
func (g *Generation) At(h Handle) *Fiber {
	return &g.fibers[h]
}

// Len returns the number of fibers in the generation.
func (g *Generation) Len() int {
	if g == nil {
		return 0
	}
	return len(g.fibers)
}

// Root returns the root handle, or None for an empty generation.
func (g *Generation) Root() Handle {
	if g.Len() == 0 {
		return None
	}
	return 0
}

// Walk visits the tree in depth-first pre-order starting at the root. The walk
// stops early when fn returns false.
func (g *Generation) Walk(fn func(h Handle, f *Fiber) bool) {
	for h := g.Root(); h != None; h = g.nextPreOrder(h, true) {
		if !fn(h, g.At(h)) {
			return
		}
	}
}

// nextPreOrder returns the pre-order successor of h. With descend false the
// children of h are skipped. The walk never leaves the subtree of the root.
func (g *Generation) nextPreOrder(h Handle, descend bool) Handle {
	if f := g.At(h); descend && f.Child != None {
		return f.Child
	}
	for h != None {
		f := g.At(h)
		if f.Sibling != None {
			return f.Sibling
		}
		h = f.Parent
	}
	return None
}

// ChildHandles returns the handles of h's children in sibling order.
func (g *Generation) ChildHandles(h Handle) []Handle {
	var out []Handle
	for c := g.At(h).Child; c != None; c = g.At(c).Sibling {
		out = append(out, c)
	}
	return out
}

// hostParent returns the host node of the nearest ancestor of h that has one.
func (g *Generation) hostParent(h Handle) HostNode {
	for p := g.At(h).Parent; p != None; p = g.At(p).Parent {
		if n := g.At(p).Host; n != nil {
			return n
		}
	}
	return nil
}

// topHosts returns the outermost host nodes of the subtree rooted at h: h's
// own node, or for a component the top host nodes of its descendants.
func (g *Generation) topHosts(h Handle, out []HostNode) []HostNode {
	f := g.At(h)
	if f.Host != nil {
		return append(out, f.Host)
	}
	for c := f.Child; c != None; c = g.At(c).Sibling {
		out = g.topHosts(c, out)
	}
	return out
}

// unlink removes h from its parent's child chain.
func (g *Generation) unlink(h Handle) {
	f := g.At(h)
	if f.Parent == None {
		return
	}
	p := g.At(f.Parent)
	if p.Child == h {
		p.Child = f.Sibling
	} else {
		for c := p.Child; c != None; c = g.At(c).Sibling {
			if g.At(c).Sibling == h {
				g.At(c).Sibling = f.Sibling
				break
			}
		}
	}
	f.Parent, f.Sibling = None, None
}

// compactHooks drops replayed actions from the hook queues of a committed
// generation.
func (g *Generation) compactHooks() {
	for i := range g.fibers {
		for _, rec := range g.fibers[i].Hooks {
			rec.compact()
		}
	}
}
