// Package server serves live Loom applications over WebSocket.
//
// Every connection gets a Session that owns its own event loop, engine and
// remote document:
//
//	browser ──event frame──► Session.readLoop ──Post──► idle.Loop
//	                                                      │
//	                                   listener ─► state update ─► engine
//	                                                      │
//	browser ◄──patches frame── remote.Document.EndCommit ◄┘
//
// The engine, the document and every listener run on the session's loop
// goroutine. The read loop only decodes frames and posts work; writes are
// serialized by a mutex so heartbeats and commits never interleave.
//
// Routes:
//   - GET /          server-rendered page that boots the thin client
//   - GET /ws        WebSocket endpoint
//   - GET /healthz   JSON health report
//   - GET /metrics   Prometheus metrics, when metrics are configured
//   - GET /_loom/client.js  the thin client
//
// Usage:
//
//	srv := server.New(demo.Counter, server.DefaultConfig(),
//	    server.WithLogger(logger),
//	    server.WithMetrics(metrics.New()),
//	)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
