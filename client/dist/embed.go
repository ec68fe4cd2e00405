package clientdist

import _ "embed"

// LoomJS is the thin client JavaScript.
//
// It is served by the server at "/_loom/client.js". The client connects to
// the socket named by the mount element's data-loom-ws attribute, applies
// patch frames to the mount element and sends listener events back.
//
//go:embed loom.js
var LoomJS []byte
