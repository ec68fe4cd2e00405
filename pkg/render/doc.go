// Package render serializes memdom trees to HTML.
//
// It is used for the initial page served before a live session connects and
// for static export:
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(root)
//
// Text and attribute values are always escaped. Void elements get no closing
// tag, boolean attributes are rendered by presence and attributes are sorted
// for deterministic output. Listeners are not serialized; elements that have
// any are marked with data-lid (the node id) and one data-on-<event> marker
// per event.
package render
