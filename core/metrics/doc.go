// Package metrics defines the events recorded while a scenario sweep runs.
// Sinks such as PromSink and InfluxSink live in infra/metrics and are built
// from configuration through the registry in this package; several sinks are
// combined with NewMultiSink.
package metrics
