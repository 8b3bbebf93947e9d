package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/optses/core/factory"
	coremetrics "github.com/kilianp07/optses/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.Recorder, error) {
		return coremetrics.NopSink{}, nil
	})

	// The listen address is used by the CLI to start the HTTP server.
	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.Recorder, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Recorder, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
