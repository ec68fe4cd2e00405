package render

import (
	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/surface/memdom"
	"github.com/vango-dev/loom/pkg/vdom"
)

// Mount renders el into a fresh in-memory document with a one-shot engine
// and returns the mount node. The result is a snapshot: listeners are bound
// on the memdom nodes but nothing re-renders after Mount returns.
func Mount(el *vdom.Element, opts fiber.Options) (*memdom.Node, error) {
	doc := memdom.New()
	body := doc.NewRoot("body")
	eng := fiber.New(doc, opts)
	defer eng.Close()

	if err := eng.Render(el, body); err != nil {
		return nil, err
	}
	if err := eng.Flush(); err != nil {
		return nil, err
	}
	return body, nil
}
