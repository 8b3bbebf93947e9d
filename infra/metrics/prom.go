package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/kilianp07/optses/core/metrics"
)

// PromSink exposes scenario outcomes as Prometheus metrics.
type PromSink struct {
	scenarios *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	slots     prometheus.Gauge
}

// NewPromSink registers sweep metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers sweep metrics on reg. Collectors already
// registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	scenarios := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optses_scenarios_total",
		Help: "Finished scenarios by outcome",
	}, []string{"status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optses_scenario_duration_seconds",
		Help:    "Wall time of one scenario run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"status"})
	slots := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "optses_slots_in_use",
		Help: "Worker slots currently held",
	})

	var err error
	if scenarios, err = register(reg, scenarios); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if slots, err = register(reg, slots); err != nil {
		return nil, err
	}
	return &PromSink{scenarios: scenarios, duration: duration, slots: slots}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordScenario counts the outcome and observes the run duration.
func (s *PromSink) RecordScenario(ev coremetrics.ScenarioEvent) error {
	s.scenarios.WithLabelValues(ev.Status).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	return nil
}

// RecordSlotsInUse sets the slot gauge.
func (s *PromSink) RecordSlotsInUse(n int) error {
	s.slots.Set(float64(n))
	return nil
}

// StartPromServer serves /metrics on addr until ctx is canceled.
func StartPromServer(ctx context.Context, addr string, log Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && log != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
