package sweep

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/optses/core/logger"
	"github.com/kilianp07/optses/core/metrics"
	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/monitoring"
	"github.com/kilianp07/optses/core/mpc"
)

// Scheduler runs a batch of scenarios on a fixed pool of workers.
type Scheduler struct {
	// Workers is the pool size W; zero means runtime.NumCPU().
	Workers  int
	Driver   mpc.Driver
	Store    ResultStore
	Log      LogSink
	Progress Progress
	Metrics  metrics.Recorder
	Monitor  monitoring.Monitor
	Logger   logger.Logger
	Timeout  time.Duration
}

// Report summarises a finished batch. Results are in completion order.
type Report struct {
	RunID     string
	Workers   int
	Results   []Result
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Completed returns the number of finished scenarios, failed ones included.
func (r *Report) Completed() int { return len(r.Results) }

// Size returns W.
func (s *Scheduler) Size() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}

// RunAll runs every scenario and returns once all of them finished. A failing
// scenario never stops the batch; the returned error only reports invalid
// input detected before anything ran.
func (s *Scheduler) RunAll(ctx context.Context, scenarios []model.Scenario) (*Report, error) {
	seen := make(map[string]bool, len(scenarios))
	artifacts := make(map[string]string, len(scenarios))
	for _, sc := range scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("scenario without name")
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("duplicate scenario %q", sc.Name)
		}
		seen[sc.Name] = true
		// Artifact names may land on a case-insensitive filesystem.
		key := strings.ToLower(model.FileName(sc.Name))
		if other, ok := artifacts[key]; ok {
			return nil, fmt.Errorf("scenarios %q and %q share artifact name %q", other, sc.Name, model.FileName(sc.Name))
		}
		artifacts[key] = sc.Name
	}

	w := s.Size()
	pool, err := NewSlotPool(w)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	progress := s.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	report := &Report{RunID: uuid.NewString(), Workers: w}
	worker := &Worker{
		Driver:  s.Driver,
		Store:   s.Store,
		Pool:    pool,
		Log:     s.Log,
		Metrics: s.Metrics,
		Monitor: s.Monitor,
		Logger:  s.Logger,
		Timeout: s.Timeout,
		RunID:   report.RunID,
	}
	if s.Logger != nil {
		s.Logger.Infof("run %s: %d scenarios on %d workers", report.RunID, len(scenarios), w)
	}

	start := time.Now()
	progress.Start(len(scenarios))
	defer progress.Stop()

	jobs := make(chan model.Scenario)
	done := make(chan Result, len(scenarios))
	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(jobs)
		for _, sc := range scenarios {
			jobs <- sc
		}
		return nil
	})
	for i := 0; i < w; i++ {
		g.Go(func() error {
			for sc := range jobs {
				done <- worker.Run(ctx, sc)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(done)
	}()

	for res := range done {
		report.Results = append(report.Results, res)
		if res.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
		progress.Done(res.Name, res.Err)
	}
	report.Elapsed = time.Since(start)
	if s.Logger != nil {
		s.Logger.Infof("run %s: %d succeeded, %d failed in %s",
			report.RunID, report.Succeeded, report.Failed, FormatElapsed(report.Elapsed))
	}
	return report, nil
}
