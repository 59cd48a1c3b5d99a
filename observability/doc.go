// Package observability builds the process logger and the Prometheus
// collectors that the orchestration components report into.
//
// Components never import this package; they expose Observe hooks and the
// command wires them to a [Metrics] instance.
package observability
