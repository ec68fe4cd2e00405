package demo

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	lerrors "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/surface/memdom"
)

type harness struct {
	t    *testing.T
	doc  *memdom.Document
	body *memdom.Node
	eng  *fiber.Engine
}

func mount(t *testing.T, name string) *harness {
	t.Helper()
	app, err := Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", name, err)
	}
	doc := memdom.New()
	h := &harness{
		t:    t,
		doc:  doc,
		body: doc.NewRoot("body"),
		eng:  fiber.New(doc, fiber.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}),
	}
	t.Cleanup(h.eng.Close)
	if err := h.eng.Render(app(), h.body); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	h.flush()
	return h
}

func (h *harness) flush() {
	h.t.Helper()
	if err := h.eng.Flush(); err != nil {
		h.t.Fatalf("Flush() error = %v", err)
	}
}

func (h *harness) find(tag, text string) *memdom.Node {
	h.t.Helper()
	n := h.body.Find(func(n *memdom.Node) bool {
		return n.Tag == tag && (text == "" || n.TextContent() == text)
	})
	if n == nil {
		h.t.Fatalf("no <%s> %q in:\n%s", tag, text, memdom.Dump(h.body))
	}
	return n
}

func (h *harness) fire(n *memdom.Node, event, value string) {
	h.t.Helper()
	if !h.doc.Dispatch(n, event, value) {
		h.t.Fatalf("Dispatch(%s) found no listener on <%s>", event, n.Tag)
	}
	h.flush()
}

func (h *harness) texts(tag string) []string {
	var out []string
	var walk func(n *memdom.Node)
	walk = func(n *memdom.Node) {
		if n.Tag == tag {
			out = append(out, n.TextContent())
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(h.body)
	return out
}

func TestLookup(t *testing.T) {
	if diff := cmp.Diff([]string{"counter", "todo"}, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	_, err := Lookup("chess")
	var le *lerrors.LoomError
	if !errors.As(err, &le) || le.Code != "E030" {
		t.Fatalf("Lookup(chess) error = %v, want E030", err)
	}
}

func TestCounter(t *testing.T) {
	h := mount(t, "counter")
	count := h.find("p", "")

	if got := count.TextContent(); got != "Count: 0" {
		t.Fatalf("initial text = %q, want %q", got, "Count: 0")
	}
	reset := h.find("button", "Reset")
	if reset.Attrs["disabled"] != true {
		t.Errorf("Reset disabled = %v, want true", reset.Attrs["disabled"])
	}

	plus := h.find("button", "+")
	h.fire(plus, "click", "")
	h.fire(plus, "click", "")
	h.fire(h.find("button", "-"), "click", "")
	if got := count.TextContent(); got != "Count: 1" {
		t.Errorf("text after +, +, - = %q, want %q", got, "Count: 1")
	}
	if reset.Attrs["disabled"] == true {
		t.Error("Reset still disabled after a change")
	}

	h.fire(reset, "click", "")
	if got := count.TextContent(); got != "Count: 0" {
		t.Errorf("text after reset = %q, want %q", got, "Count: 0")
	}
}

func TestTodo(t *testing.T) {
	h := mount(t, "todo")
	input := h.find("input", "")
	form := h.find("form", "")

	for _, title := range []string{"milk", "  ", "eggs"} {
		h.fire(input, "input", title)
		h.fire(form, "submit", "")
	}
	if diff := cmp.Diff([]string{"milk×", "eggs×"}, h.texts("li")); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if got := input.Attr("value"); got != "" {
		t.Errorf("input value after submit = %q, want empty", got)
	}
	if got := h.find("footer", "").TextContent(); got != "2 openClear done" {
		t.Errorf("footer = %q", got)
	}

	first := h.find("li", "milk×")
	h.fire(first.FindTag("input"), "change", "")
	if first.Attr("class") != "item done" {
		t.Errorf("class after toggle = %q, want %q", first.Attr("class"), "item done")
	}
	if got := h.find("footer", "").TextContent(); got != "1 openClear done" {
		t.Errorf("footer after toggle = %q", got)
	}

	h.fire(h.find("button", "Clear done"), "click", "")
	if diff := cmp.Diff([]string{"eggs×"}, h.texts("li")); diff != "" {
		t.Errorf("items after clear mismatch (-want +got):\n%s", diff)
	}

	h.fire(h.find("li", "eggs×").FindTag("button"), "click", "")
	if got := h.texts("li"); len(got) != 0 {
		t.Errorf("items after remove = %v, want none", got)
	}
}

func TestReduceTodos(t *testing.T) {
	items := []todoItem{{Title: "a"}, {Title: "b", Done: true}}
	tests := []struct {
		name   string
		action todoAction
		want   []todoItem
	}{
		{"add", todoAction{kind: "add", title: " c "}, []todoItem{{Title: "a"}, {Title: "b", Done: true}, {Title: "c"}}},
		{"add blank", todoAction{kind: "add", title: " "}, items},
		{"toggle", todoAction{kind: "toggle", index: 0}, []todoItem{{Title: "a", Done: true}, {Title: "b", Done: true}}},
		{"toggle out of range", todoAction{kind: "toggle", index: 5}, items},
		{"remove", todoAction{kind: "remove", index: 0}, []todoItem{{Title: "b", Done: true}}},
		{"clear", todoAction{kind: "clear"}, []todoItem{{Title: "a"}}},
		{"unknown", todoAction{kind: "sort"}, items},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := reduceTodos(items, tc.action)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("reduceTodos() mismatch (-want +got):\n%s", diff)
			}
			if items[0].Done {
				t.Error("reduceTodos mutated its input")
			}
		})
	}
}
