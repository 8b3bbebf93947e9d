// Package app assembles the sweep from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kilianp07/optses/api"
	apiresults "github.com/kilianp07/optses/api/results"
	"github.com/kilianp07/optses/app/plugins"
	"github.com/kilianp07/optses/config"
	coremetrics "github.com/kilianp07/optses/core/metrics"
	"github.com/kilianp07/optses/core/model"
	coremon "github.com/kilianp07/optses/core/monitoring"
	"github.com/kilianp07/optses/core/sweep"
	"github.com/kilianp07/optses/infra/logger"
	"github.com/kilianp07/optses/infra/logsink"
	"github.com/kilianp07/optses/infra/metrics"
	"github.com/kilianp07/optses/infra/monitoring"
	"github.com/kilianp07/optses/infra/progress"
	"github.com/kilianp07/optses/infra/results"
	"github.com/kilianp07/optses/pkg/export"
)

// Service runs scenario sweeps with the configured sinks.
type Service struct {
	Scheduler *sweep.Scheduler
	Store     results.Store
	Sink      *logsink.Sink

	cfg     *config.Config
	metrics coremetrics.Recorder
	monitor coremon.Monitor
	log     logger.Logger
	status  *sweep.Status
}

// New creates a Service from the configuration. Progress bars are drawn on
// progressOut unless disabled.
func New(cfg *config.Config, progressOut io.Writer) (*Service, error) {
	logg := logger.New("service")

	store, err := results.New(cfg.Results)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	sink, err := logsink.New(cfg.Sweep.LogPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("log sink: %w", err)
	}
	rec, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logg.Warnf("sentry disabled: %v", err)
		mon = coremon.NopMonitor{}
	}

	sched := &sweep.Scheduler{
		Workers: cfg.Sweep.Workers,
		Store:   store,
		Log:     sink,
		Metrics: rec,
		Monitor: mon,
		Logger:  logg,
		Timeout: cfg.Sweep.Timeout(),
	}
	var display sweep.Progress = sweep.NopProgress{}
	if !cfg.Sweep.NoProgress && progressOut != nil {
		display = progress.NewBoard(progressOut, sched.Size())
	}
	var status *sweep.Status
	if cfg.API.Addr != "" {
		status = sweep.NewStatus(display)
		display = status
	}
	sched.Progress = display

	svc := &Service{
		Scheduler: sched,
		Store:     store,
		Sink:      sink,
		cfg:       cfg,
		metrics:   rec,
		monitor:   mon,
		log:       logg,
		status:    status,
	}
	sched.Driver, err = plugins.NewDriver(cfg.Sweep.Driver, display, logger.New("driver"))
	if err != nil {
		if cerr := svc.Close(); cerr != nil {
			logg.Warnf("release after failed start: %v", cerr)
		}
		return nil, err
	}
	return svc, nil
}

// Run executes every scenario and writes the optional JSON report. Scenario
// failures are reported, not returned. The metrics and API servers live for
// the duration of the run.
func (s *Service) Run(ctx context.Context, scenarios []model.Scenario) (*sweep.Report, error) {
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		promCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.StartPromServer(promCtx, addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	if s.status != nil {
		var loader apiresults.Loader
		if l, ok := s.Store.(apiresults.Loader); ok {
			loader = l
		}
		mux := api.NewMux(s.status, loader, s.cfg.API.Token)
		apiCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := api.Serve(apiCtx, s.cfg.API.Addr, mux, s.log); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}

	report, err := s.Scheduler.RunAll(ctx, scenarios)
	if err != nil {
		return nil, err
	}
	if path := s.cfg.Sweep.Report; path != "" {
		if err := writeReport(path, report); err != nil {
			return report, fmt.Errorf("write report: %w", err)
		}
	}
	return report, nil
}

func writeReport(path string, r *sweep.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.WriteReport(f, r)
}

// Close releases the store and metrics connections and flushes pending
// error reports.
func (s *Service) Close() error {
	var errs []error
	if err := s.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := s.metrics.(coremetrics.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}
