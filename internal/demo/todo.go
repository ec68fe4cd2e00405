package demo

import (
	"strings"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/vdom"
)

type todoItem struct {
	Title string
	Done  bool
}

type todoAction struct {
	kind  string // "add", "toggle", "remove" or "clear"
	index int
	title string
}

func reduceTodos(items []todoItem, a todoAction) []todoItem {
	switch a.kind {
	case "add":
		title := strings.TrimSpace(a.title)
		if title == "" {
			return items
		}
		return append(append([]todoItem(nil), items...), todoItem{Title: title})
	case "toggle":
		if a.index < 0 || a.index >= len(items) {
			return items
		}
		out := append([]todoItem(nil), items...)
		out[a.index].Done = !out[a.index].Done
		return out
	case "remove":
		if a.index < 0 || a.index >= len(items) {
			return items
		}
		out := make([]todoItem, 0, len(items)-1)
		out = append(out, items[:a.index]...)
		return append(out, items[a.index+1:]...)
	case "clear":
		out := make([]todoItem, 0, len(items))
		for _, it := range items {
			if !it.Done {
				out = append(out, it)
			}
		}
		return out
	}
	return items
}

// Todo is a list with an input, per-item toggle and remove, and a footer
// counting the open items.
var Todo = vdom.Define("Todo", func(h vdom.Hooks, props vdom.Props) *vdom.Element {
	items, dispatch := fiber.UseReducer(h, reduceTodos, []todoItem(nil))
	draft, setDraft := fiber.UseState(h, "")

	open := 0
	rows := make([]*vdom.Element, 0, len(items))
	for i, it := range items {
		i := i
		class := "item"
		if it.Done {
			class = "item done"
		} else {
			open++
		}
		rows = append(rows, vdom.Li(
			vdom.Class(class),
			vdom.Input(
				vdom.InputType("checkbox"),
				vdom.Checked(it.Done),
				vdom.OnChange(func() { dispatch(todoAction{kind: "toggle", index: i}) }),
			),
			vdom.Span(vdom.Text(it.Title)),
			vdom.Button(
				vdom.AriaLabel("Remove"),
				vdom.OnClick(func() { dispatch(todoAction{kind: "remove", index: i}) }),
				vdom.Text("×"),
			),
		))
	}

	return vdom.Div(
		vdom.Class("todo"),
		vdom.H1(vdom.Text("Todo")),
		vdom.Form(
			vdom.OnSubmit(func() {
				dispatch(todoAction{kind: "add", title: draft})
				setDraft.Set("")
			}),
			vdom.Input(
				vdom.InputType("text"),
				vdom.Placeholder("What needs doing?"),
				vdom.Value(draft),
				vdom.OnInput(func(v string) { setDraft.Set(v) }),
			),
			vdom.Button(vdom.InputType("submit"), vdom.Text("Add")),
		),
		vdom.Ul(rows),
		vdom.Footer(
			vdom.Span(vdom.Textf("%d open", open)),
			vdom.Button(
				vdom.DisabledIf(open == len(items)),
				vdom.OnClick(func() { dispatch(todoAction{kind: "clear"}) }),
				vdom.Text("Clear done"),
			),
		),
	)
})
