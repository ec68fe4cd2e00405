// Package fiber implements the incremental reconciliation engine.
//
// An Engine keeps two generations of fibers: the current generation, which
// mirrors what the rendering surface shows, and a work-in-progress generation
// built one unit of work at a time. Each generation is an arena; fibers link
// to each other with integer handles and to their counterpart in the other
// generation through Alternate.
//
// Rendering is split into two phases:
//
//   - The render phase walks the work-in-progress tree depth-first, invoking
//     components and reconciling their children against the current tree.
//     It can be suspended between any two units of work.
//   - The commit phase applies deletions, placements and property updates to
//     the Surface in one synchronous pass and promotes the work-in-progress
//     generation to current.
//
// The surface therefore only ever observes complete generations. A render
// request issued while another pass is in flight simply replaces it.
//
// Usage:
//
//	eng := fiber.New(surface, fiber.Options{})
//	if err := eng.Render(app, mount); err != nil {
//	    return err
//	}
//	eng.Start(loop) // or eng.Flush() for synchronous rendering
//
// An Engine is not safe for concurrent use. Drive it from one goroutine, for
// example the goroutine of an idle.Loop.
package fiber
