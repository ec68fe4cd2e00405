package vdom

import (
	"fmt"
	"strconv"

	"github.com/vango-dev/loom/internal/errors"
)

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// EventHandler represents a listener prop.
type EventHandler struct {
	Event   string // "onclick", "oninput", etc.
	Handler any    // func(Event), Listener or func()
}

// malformed builds an E001 error.
func malformed(format string, args ...any) *errors.LoomError {
	return errors.New("E001").WithDetailf(format, args...)
}

// New builds an element of type t, returning an E001 error when the
// description is malformed. Props are copied; for components the children are
// passed under ChildrenProp.
func New(t Type, props Props, children ...any) (*Element, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}
	if _, ok := props[ChildrenProp]; ok && t.Kind == KindHost {
		return nil, malformed("%s: %q is reserved and cannot be set as a prop", t, ChildrenProp)
	}

	var kids []*Element
	for _, c := range children {
		if err := appendChild(&kids, c); err != nil {
			return nil, err
		}
	}

	el := &Element{Type: t, Props: props.Clone()}
	if el.Props == nil {
		el.Props = Props{}
	}

	switch t.Kind {
	case KindText:
		if len(kids) > 0 {
			return nil, malformed("text elements cannot have children")
		}
		if _, ok := el.Props[TextValueProp].(string); !ok {
			return nil, malformed("text element requires a string %q prop", TextValueProp)
		}
	case KindComponent:
		if len(kids) > 0 {
			el.Props[ChildrenProp] = kids
		}
	default:
		el.Children = kids
	}
	return el, nil
}

// H builds a host element. It is the engine's buildElement entry point and
// panics with an E001 error on malformed input.
func H(tag string, props Props, children ...any) *Element {
	return must(New(HostType(tag), props, children...))
}

// C builds a component element. It panics with an E001 error on malformed
// input.
func C(comp *Component, props Props, children ...any) *Element {
	return must(New(ComponentType(comp), props, children...))
}

// Text creates a text element.
func Text(content string) *Element {
	return &Element{
		Type:  TextType,
		Props: Props{TextValueProp: content},
	}
}

// Textf creates a formatted text element.
func Textf(format string, args ...any) *Element {
	return Text(fmt.Sprintf(format, args...))
}

func must(el *Element, err error) *Element {
	if err != nil {
		panic(err)
	}
	return el
}

func checkType(t Type) error {
	switch t.Kind {
	case KindHost:
		if t.Tag == "" {
			return malformed("host element without a tag")
		}
	case KindText:
	case KindComponent:
		if !t.Comp.Valid() {
			return malformed("component element without a render function")
		}
	default:
		return malformed("unknown element kind %d", t.Kind)
	}
	return nil
}

// appendChild normalizes one child argument.
func appendChild(out *[]*Element, arg any) error {
	switch v := arg.(type) {
	case nil:
	case *Element:
		if v != nil {
			*out = append(*out, v)
		}
	case []*Element:
		for _, c := range v {
			if c != nil {
				*out = append(*out, c)
			}
		}
	case string:
		*out = append(*out, Text(v))
	case int:
		*out = append(*out, Text(strconv.Itoa(v)))
	case int64:
		*out = append(*out, Text(strconv.FormatInt(v, 10)))
	case float64:
		*out = append(*out, Text(strconv.FormatFloat(v, 'f', -1, 64)))
	case bool:
		*out = append(*out, Text(strconv.FormatBool(v)))
	case fmt.Stringer:
		*out = append(*out, Text(v.String()))
	default:
		return malformed("unsupported child of type %T", arg)
	}
	return nil
}

// createElement creates a host element from the variadic helper arguments.
// Arguments can be: nil, Attr, []Attr, EventHandler, Props, *Element,
// []*Element, string, numbers, bool or fmt.Stringer.
func createElement(tag string, args []any) *Element {
	props := Props{}
	children := make([]any, 0, len(args))

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			if !v.IsEmpty() {
				props[v.Key] = v.Value
			}
		case []Attr:
			for _, a := range v {
				if !a.IsEmpty() {
					props[a.Key] = a.Value
				}
			}
		case EventHandler:
			if v.Event != "" && v.Handler != nil {
				props[v.Event] = v.Handler
			}
		case Props:
			for k, val := range v {
				props[k] = val
			}
		default:
			children = append(children, arg)
		}
	}

	return H(tag, props, children...)
}

// Check validates the element itself, not its descendants.
func (e *Element) Check() error {
	if e == nil {
		return malformed("nil element")
	}
	if err := checkType(e.Type); err != nil {
		return err
	}
	if e.Kind == KindText {
		if len(e.Children) > 0 {
			return malformed("text elements cannot have children")
		}
		if _, ok := e.Props[TextValueProp].(string); !ok {
			return malformed("text element requires a string %q prop", TextValueProp)
		}
	}
	for i, c := range e.Children {
		if c == nil {
			return malformed("%s: child %d is nil", e.Type, i)
		}
	}
	return nil
}

// Validate checks the whole element tree below e. Component output is not
// rendered, only the component's children prop is inspected.
func Validate(e *Element) error {
	if err := e.Check(); err != nil {
		return err
	}
	for _, c := range e.Children {
		if err := Validate(c); err != nil {
			return err
		}
	}
	for _, c := range ChildrenOf(e.Props) {
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}
