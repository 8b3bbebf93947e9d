package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/optses/core/logger"
	"github.com/kilianp07/optses/core/metrics"
	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/monitoring"
	"github.com/kilianp07/optses/core/mpc"
)

// LogSink receives the one line each scenario writes to the shared log.
type LogSink interface {
	Info(msg string) error
	Error(msg string) error
}

// ResultStore persists a scenario result under the scenario's name.
type ResultStore interface {
	Save(ctx context.Context, name string, t *model.Table) error
}

// Result is the outcome of one scenario.
type Result struct {
	Name    string
	Slot    int
	Elapsed time.Duration
	Err     error
	// LogErr is set when the shared log line could not be written. A scenario
	// whose finished line is lost counts as failed with Err wrapping LogErr,
	// even though its artifact was saved.
	LogErr error
}

// Worker runs single scenarios against a shared slot pool and log sink.
type Worker struct {
	Driver  mpc.Driver
	Store   ResultStore
	Pool    *SlotPool
	Log     LogSink
	Metrics metrics.Recorder
	Monitor monitoring.Monitor
	Logger  logger.Logger
	// Timeout bounds each driver call; zero disables it.
	Timeout time.Duration
	RunID   string

	now func() time.Time
}

func (w *Worker) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

// Run executes one scenario. It never returns a failure to the caller: every
// error or panic is logged and reported in the Result. The slot is released
// on every path once acquired.
func (w *Worker) Run(ctx context.Context, sc model.Scenario) (res Result) {
	res.Name = sc.Name
	slot, err := w.Pool.Acquire(ctx)
	if err != nil {
		res.Err = fmt.Errorf("acquire slot: %w", err)
		res.LogErr = w.Log.Error(FailedMessage(sc.Name, res.Err))
		w.record(res)
		return res
	}
	res.Slot = slot
	w.slots()
	defer func() {
		w.Pool.Release(slot)
		w.slots()
	}()

	start := w.clock()
	res.Err = w.execute(ctx, sc, slot)
	res.Elapsed = w.clock().Sub(start)

	if res.Err != nil {
		res.LogErr = w.Log.Error(FailedMessage(sc.Name, res.Err))
		w.capture(sc.Name, res.Err)
	} else {
		res.LogErr = w.Log.Info(FinishedMessage(sc.Name, res.Elapsed))
		if res.LogErr != nil {
			res.Err = fmt.Errorf("write shared log: %w", res.LogErr)
			w.capture(sc.Name, res.Err)
		}
	}
	if res.LogErr != nil && w.Logger != nil {
		w.Logger.Errorf("shared log write for %s: %v", sc.Name, res.LogErr)
	}
	w.record(res)
	return res
}

func (w *Worker) capture(name string, err error) {
	if w.Monitor == nil {
		return
	}
	w.Monitor.CaptureException(err, map[string]string{
		"scenario": name,
		"kind":     FailureKind(err),
		"run_id":   w.RunID,
	})
}

// execute runs the driver and persists its table, turning panics into errors.
func (w *Worker) execute(ctx context.Context, sc model.Scenario, slot int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	table, err := w.Driver.Run(ctx, sc.Name, sc.Params, slot)
	if err != nil {
		return err
	}
	if table == nil {
		return fmt.Errorf("driver returned no result")
	}
	if err := w.Store.Save(ctx, sc.Name, table); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (w *Worker) record(res Result) {
	if w.Metrics == nil {
		return
	}
	ev := metrics.ScenarioEvent{
		RunID:    w.RunID,
		Scenario: res.Name,
		Slot:     res.Slot,
		Status:   metrics.StatusSucceeded,
		Duration: res.Elapsed,
		Time:     w.clock(),
	}
	if res.Err != nil {
		ev.Status = metrics.StatusFailed
		ev.Kind = FailureKind(res.Err)
		ev.Err = res.Err.Error()
	}
	if err := w.Metrics.RecordScenario(ev); err != nil && w.Logger != nil {
		w.Logger.Warnf("record metrics for %s: %v", res.Name, err)
	}
}

func (w *Worker) slots() {
	sr, ok := w.Metrics.(metrics.SlotRecorder)
	if !ok {
		return
	}
	if err := sr.RecordSlotsInUse(w.Pool.InUse()); err != nil && w.Logger != nil {
		w.Logger.Warnf("record slot usage: %v", err)
	}
}
