// Package infra contains technical adapters: the SQL and document mappers,
// the database opener, logging, metrics exporters and error monitoring.
// These packages should depend only on the interfaces defined in the core
// packages.
package infra
