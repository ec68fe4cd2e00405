// Package memdom is an in-memory rendering surface.
//
// A Document creates Nodes, applies props to them and links them into trees,
// recording every operation in a log. It implements the fiber.Surface,
// fiber.Inserter and fiber.CommitBatcher contracts and is used by tests, by
// the HTML renderer and by static export.
//
//	doc := memdom.New()
//	root := doc.NewRoot("body")
//	eng := fiber.New(doc, fiber.Options{})
//	eng.Render(app, root)
//	eng.Flush()
//	fmt.Println(root)
package memdom
