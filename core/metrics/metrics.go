package metrics

import "time"

// PersistenceEvent describes one find, save or remove performed by a model.
type PersistenceEvent struct {
	Op       string
	Class    string
	Duration time.Duration
	Err      error
	Time     time.Time
}

// Sink records persistence events for observability purposes.
type Sink interface {
	RecordPersistence(ev PersistenceEvent) error
}

// RecoveryEvent captures the replacement of a failed provider handle.
type RecoveryEvent struct {
	Class      string
	OldHandle  string
	NewHandle  string
	Cause      error
	Err        error
	Time       time.Time
	RecoveryOK bool
}

// RecoveryRecorder records provider recoveries.
type RecoveryRecorder interface {
	RecordRecovery(ev RecoveryEvent) error
}

// GridEvent records the construction of a grid.
type GridEvent struct {
	GridType  string
	Variant   string
	Overrides []string
	Time      time.Time
}

// GridRecorder records grid construction.
type GridRecorder interface {
	RecordGrid(ev GridEvent) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordPersistence(PersistenceEvent) error { return nil }
func (NopSink) RecordRecovery(RecoveryEvent) error       { return nil }
func (NopSink) RecordGrid(GridEvent) error               { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPersistence forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPersistence(ev PersistenceEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPersistence(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRecovery forwards recoveries to sinks that record them.
func (m *MultiSink) RecordRecovery(ev RecoveryEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RecoveryRecorder); ok {
			if err := rec.RecordRecovery(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordGrid forwards grid events to sinks that record them.
func (m *MultiSink) RecordGrid(ev GridEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(GridRecorder); ok {
			if err := rec.RecordGrid(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
