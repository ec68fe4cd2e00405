package fiber

import (
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vdom"
)

// reconcileChildren builds the child fibers of h from elements, matching
// them by position against the children of h's alternate. Matching types
// become updates that keep the old host node; new elements without a match
// become placements; old fibers without a match are queued for deletion.
func (e *Engine) reconcileChildren(h Handle, elements []*vdom.Element) error {
	old := None
	if alt := e.wip.At(h).Alternate; alt != None && e.current != nil {
		old = e.current.At(alt).Child
	}

	prev := None
	for i := 0; i < len(elements) || old != None; i++ {
		var el *vdom.Element
		if i < len(elements) {
			el = elements[i]
			if el == nil {
				return errors.New("E001").WithDetailf("%s: child %d is nil", e.wip.At(h).Type, i)
			}
			if err := el.Check(); err != nil {
				return err
			}
		}

		var oldFiber *Fiber
		if old != None {
			oldFiber = e.current.At(old)
		}
		same := el != nil && oldFiber != nil && oldFiber.Type == el.Type

		n := None
		switch {
		case same:
			n = e.wip.alloc(Fiber{
				Type:      el.Type,
				Props:     el.Props,
				Host:      oldFiber.Host,
				Parent:    h,
				Child:     None,
				Sibling:   None,
				Alternate: old,
				Effect:    EffectUpdate,
				Children:  el.Children,
			})
		case el != nil:
			n = e.wip.alloc(Fiber{
				Type:      el.Type,
				Props:     el.Props,
				Parent:    h,
				Child:     None,
				Sibling:   None,
				Alternate: None,
				Effect:    EffectPlace,
				Children:  el.Children,
			})
		}
		if oldFiber != nil && !same {
			e.deletions = append(e.deletions, deletion{h: old, prev: oldFiber.Effect})
			oldFiber.Effect = EffectDelete
		}

		if n != None {
			if prev == None {
				e.wip.At(h).Child = n
			} else {
				e.wip.At(prev).Sibling = n
			}
			prev = n
		}
		if oldFiber != nil {
			old = oldFiber.Sibling
		}
	}
	return nil
}
