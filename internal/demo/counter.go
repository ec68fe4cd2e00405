package demo

import (
	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/vdom"
)

// Counter renders a value with increment, decrement and reset buttons.
// The "start" prop sets the initial value.
var Counter = vdom.Define("Counter", func(h vdom.Hooks, props vdom.Props) *vdom.Element {
	start, _ := props["start"].(int)
	count, set := fiber.UseState(h, start)

	return vdom.Div(
		vdom.Class("counter"),
		vdom.H1(vdom.Text("Counter")),
		vdom.P(
			vdom.Class("count"),
			vdom.AriaLive("polite"),
			vdom.Textf("Count: %d", count),
		),
		vdom.Div(
			vdom.Class("buttons"),
			vdom.Button(vdom.OnClick(func() { set(func(n int) int { return n - 1 }) }), vdom.Text("-")),
			vdom.Button(vdom.OnClick(func() { set(func(n int) int { return n + 1 }) }), vdom.Text("+")),
			vdom.Button(vdom.DisabledIf(count == start), vdom.OnClick(func() { set.Set(start) }), vdom.Text("Reset")),
		),
	)
})
