// Package metrics exports engine and session activity to Prometheus.
//
// A Collector implements fiber.Observer, so one Collector can be shared by
// every engine of a process:
//
//	c := metrics.New(metrics.WithNamespace("myapp"))
//	eng := fiber.New(surface, fiber.Options{Observer: c})
//	http.Handle("/metrics", c.Handler())
//
// Metrics collected (namespace "loom" by default):
//   - loom_units_total: units of work performed
//   - loom_yields_total: work loops that yielded to the host
//   - loom_commits_total: committed generations
//   - loom_abandoned_total: work-in-progress trees dropped before commit
//   - loom_mutations_total{op}: surface mutations by op
//   - loom_commit_duration_seconds: commit phase duration
//   - loom_active_sessions: open live sessions
//   - loom_events_total{status}: client events handled
package metrics
