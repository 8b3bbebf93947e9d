package metrics

import "time"

// Scenario run outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ScenarioEvent describes one finished scenario run.
type ScenarioEvent struct {
	RunID    string
	Scenario string
	Slot     int
	Status   string
	Kind     string
	Duration time.Duration
	Err      string
	Time     time.Time
}

// Recorder records scenario outcomes for observability purposes.
type Recorder interface {
	RecordScenario(ev ScenarioEvent) error
}

// SlotRecorder is implemented by sinks tracking slot occupancy.
type SlotRecorder interface {
	RecordSlotsInUse(n int) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements Recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScenario(ScenarioEvent) error { return nil }
func (NopSink) RecordSlotsInUse(int) error         { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Recorder
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Recorder) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScenario forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordScenario(ev ScenarioEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordScenario(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSlotsInUse forwards slot occupancy when supported by the sink.
func (m *MultiSink) RecordSlotsInUse(n int) error {
	for _, s := range m.Sinks {
		if sr, ok := s.(SlotRecorder); ok {
			if err := sr.RecordSlotsInUse(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding resources.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
