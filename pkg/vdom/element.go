package vdom

import "fmt"

// Kind is the element type discriminator.
type Kind uint8

const (
	KindHost      Kind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindComponent             // Component reference
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindHost:
		return "Host"
	case KindText:
		return "Text"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// TextValueProp is the reserved prop holding the value of a text element.
const TextValueProp = "nodeValue"

// ChildrenProp is the prop a component receives its child elements under.
const ChildrenProp = "children"

// Type identifies what an element renders to. Type values are comparable;
// the engine matches fibers across renders with ==.
type Type struct {
	Kind Kind
	Tag  string     // KindHost only
	Comp *Component // KindComponent only
}

// TextType is the Type of every text element.
var TextType = Type{Kind: KindText}

// HostType returns the Type for a host primitive.
func HostType(tag string) Type {
	return Type{Kind: KindHost, Tag: tag}
}

// ComponentType returns the Type for a component.
func ComponentType(c *Component) Type {
	return Type{Kind: KindComponent, Comp: c}
}

// IsComponent reports whether the type renders through a component.
func (t Type) IsComponent() bool {
	return t.Kind == KindComponent
}

// String returns a short label such as "div", "#text" or "<Counter>".
func (t Type) String() string {
	switch t.Kind {
	case KindHost:
		return t.Tag
	case KindText:
		return "#text"
	case KindComponent:
		if t.Comp == nil {
			return "<nil>"
		}
		return "<" + t.Comp.Name + ">"
	default:
		return fmt.Sprintf("kind(%d)", t.Kind)
	}
}

// Props holds attributes and listeners.
type Props map[string]any

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Element is an immutable description of one node of the desired tree.
type Element struct {
	Type
	Props    Props
	Children []*Element
}

// TextValue returns the value of a text element.
func (e *Element) TextValue() string {
	if e == nil || e.Kind != KindText {
		return ""
	}
	s, _ := e.Props[TextValueProp].(string)
	return s
}

// String returns a compact debug rendering of the element tree.
func (e *Element) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == KindText {
		return fmt.Sprintf("%q", e.TextValue())
	}
	s := e.Type.String()
	if len(e.Children) == 0 {
		return s
	}
	s += "["
	for i, c := range e.Children {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s + "]"
}

// Action transforms a state value. Actions queued on a state hook are
// applied in enqueue order on the next render.
type Action func(prev any) any

// Hooks is the per-invocation hook context handed to a component. Hook
// declarations are addressed by call order, so a component must declare the
// same hooks in the same order on every render.
type Hooks interface {
	// State declares a state cell seeded with initial and returns its
	// current value and an updater that queues an Action and schedules a
	// new render pass.
	State(initial any) (any, func(Action))

	// Ref declares a mutable cell created once by create and returned
	// unchanged on every later render. It never schedules a render.
	Ref(create func() any) any
}

// RenderFunc renders a component's output for the given props.
type RenderFunc func(h Hooks, props Props) *Element

// Component is a named render function. Components are compared by pointer,
// so declare them once (typically as package-level variables).
type Component struct {
	Name   string
	render RenderFunc
}

// Define declares a component.
func Define(name string, render RenderFunc) *Component {
	return &Component{Name: name, render: render}
}

// Render invokes the component's render function.
func (c *Component) Render(h Hooks, props Props) *Element {
	return c.render(h, props)
}

// Valid reports whether the component can be rendered.
func (c *Component) Valid() bool {
	return c != nil && c.render != nil
}

// ChildrenOf returns the child elements passed to a component.
func ChildrenOf(props Props) []*Element {
	children, _ := props[ChildrenProp].([]*Element)
	return children
}
