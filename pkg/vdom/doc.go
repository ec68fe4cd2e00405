// Package vdom provides the element model for Loom.
//
// An Element is an immutable description of what should exist on the
// rendering surface: a Type, a set of Props and an ordered list of child
// elements. The fiber engine turns element trees into mutations; this package
// only describes them.
//
// # Core Types
//
// Type is a closed tagged variant with three kinds:
//
//   - KindHost: a host primitive identified by its tag ("div", "button")
//   - KindText: raw text, its value stored under the reserved TextValueProp
//   - KindComponent: a reference to a *Component declared with Define
//
// Two elements have the same type iff their Type values compare equal, which
// for components means the same *Component pointer.
//
// # Element API
//
// Elements are created with H (host), C (component) and Text, or with the
// variadic tag helpers that mix attributes, listeners and children:
//
//	Div(Class("card"), ID("main"),
//	    H1("Title"),
//	    Button(OnClick(func(Event) { ... }), "Add"),
//	)
//
// Primitive children (strings, numbers, booleans, fmt.Stringer) become text
// elements; nil children are dropped. Anything else is a malformed element
// and the builders panic with an E001 error. New returns that error instead.
//
// # Props
//
// Props whose names start with "on" are listeners; all others are plain
// attributes. DiffProps computes the presence/equality diff between two prop
// maps that rendering surfaces apply.
package vdom
