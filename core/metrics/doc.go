// Package metrics defines the events recorded around grid construction and
// model persistence, and the sinks that receive them. Sinks are created from
// configuration through a registry keyed by sink type; NewSink returns a
// MultiSink automatically when several sinks are configured. Recovery and
// grid events are optional: a sink opts in by implementing RecoveryRecorder
// or GridRecorder.
package metrics
