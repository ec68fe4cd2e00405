// Package errors provides structured, coded errors for Loom.
//
// Every error raised by the engine, the surfaces, the protocol layer and the
// CLI carries a short code (e.g. "E001") that maps to a registered template:
//
//   - element: malformed element descriptions handed to the engine
//   - surface: a rendering surface rejected a create/attach/detach/props call
//   - hooks: hook declarations drifted between two renders of a component
//   - config: loom.json / loom.yaml problems
//   - protocol: wire decoding failures
//   - cli: command line usage errors
//
// # Usage
//
//	err := errors.New("E002").
//	    WithDetail("attach failed for <li>").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E002: Rendering surface operation failed
//	//
//	//   attach failed for <li>
//
// Errors with the same code match under errors.Is, so callers can test
// against the package-level sentinels exported by the engine:
//
//	if errors.Is(err, fiber.ErrHookOrder) { ... }
package errors
