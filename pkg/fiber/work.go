package fiber

import (
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vdom"
)

// performUnitOfWork processes one fiber and returns the next unit of work, or
// None when the tree is exhausted.
func (e *Engine) performUnitOfWork(h Handle) (Handle, error) {
	e.units++
	f := e.wip.At(h)
	if e.opts.Observer != nil {
		e.opts.Observer.UnitStarted(h, f.Type)
	}

	var children []*vdom.Element
	switch f.Type.Kind {
	case vdom.KindComponent:
		out, err := e.renderComponent(h)
		if err != nil {
			return None, err
		}
		if out != nil {
			children = []*vdom.Element{out}
		}
	case vdom.KindHost, vdom.KindText:
		if f.Host == nil {
			node, err := e.surface.CreateNode(f.Type)
			if err != nil {
				return None, surfaceError("create", err)
			}
			if err := e.surface.ApplyProps(node, nil, f.Props); err != nil {
				return None, surfaceError("props", err)
			}
			f.Host = node
		}
		children = f.Children
	default:
		return None, errors.New("E001").WithDetailf("unknown element kind %d", f.Type.Kind)
	}

	if err := e.reconcileChildren(h, children); err != nil {
		return None, err
	}
	return e.wip.nextPreOrder(h, true), nil
}

// renderComponent invokes the component of fiber h with a fresh hook cursor.
func (e *Engine) renderComponent(h Handle) (*vdom.Element, error) {
	f := e.wip.At(h)
	cursor := &hookCursor{engine: e}
	if f.Alternate != None && e.current != nil {
		cursor.prev = e.current.At(f.Alternate).Hooks
		cursor.checked = true
	}

	out, err := invoke(f.Type.Comp, cursor, f.Props)
	if err != nil {
		return nil, err
	}
	if err := cursor.finish(f.Type); err != nil {
		return nil, err
	}
	e.wip.At(h).Hooks = cursor.hooks
	return out, nil
}

// invoke calls the component's render function, turning a panic into an
// error.
func invoke(c *vdom.Component, hooks vdom.Hooks, props vdom.Props) (out *vdom.Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			if le, ok := r.(*errors.LoomError); ok {
				err = le
				return
			}
			err = errors.New("E004").WithDetailf("<%s>: %v", c.Name, r)
		}
	}()
	return c.Render(hooks, props), nil
}
