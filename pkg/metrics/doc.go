// Package metrics defines the injected Collector used by the
// authentication and authorization components, with a Prometheus-backed
// implementation and a Noop for tests and optional wiring.
package metrics
