package metrics

import "github.com/kilianp07/optses/core/factory"

var sinkRegistry = factory.NewRegistry[Recorder]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Recorder]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates a Recorder from the provided configuration. Several
// configured sinks are wrapped in a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (Recorder, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]Recorder, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
