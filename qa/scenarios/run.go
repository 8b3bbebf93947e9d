package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/mpc"
	"github.com/kilianp07/optses/core/sweep"
	"github.com/kilianp07/optses/infra/logger"
	"github.com/kilianp07/optses/infra/logsink"
	"github.com/kilianp07/optses/infra/metrics"
	"github.com/kilianp07/optses/infra/results"
)

// peak tracks the highest number of concurrently running drivers.
type peak struct {
	mu       sync.Mutex
	cur, max int
}

func (p *peak) enter() {
	p.mu.Lock()
	p.cur++
	if p.cur > p.max {
		p.max = p.cur
	}
	p.mu.Unlock()
}

func (p *peak) leave() {
	p.mu.Lock()
	p.cur--
	p.mu.Unlock()
}

func scriptedDriver(c *Case, running *peak) mpc.Driver {
	defs := make(map[string]ScenarioDef, len(c.Scenarios))
	for _, d := range c.Scenarios {
		defs[d.Name] = d
	}
	return mpc.DriverFunc(func(ctx context.Context, name string, _ model.Params, _ int) (*model.Table, error) {
		running.enter()
		defer running.leave()
		d := defs[name]
		select {
		case <-time.After(time.Duration(d.DelayMS) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		switch d.Fail {
		case "":
		case "panic":
			panic("scripted panic in " + name)
		case "hang":
			<-ctx.Done()
			return nil, ctx.Err()
		default:
			return nil, scriptedError(d.Fail)
		}
		t := model.NewTable(mpc.ColPower)
		start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < d.Rows; i++ {
			if err := t.Append(start.Add(time.Duration(i)*15*time.Minute), float64(i)); err != nil {
				return nil, err
			}
		}
		return t, nil
	})
}

// RunCase runs c through the scheduler with the file-backed sinks and checks
// the report, the shared log, the artifacts and the metrics.
func RunCase(t *testing.T, c *Case) {
	t.Helper()
	dir := t.TempDir()
	reg := prometheus.NewRegistry()
	prom, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	sink, err := logsink.New(filepath.Join(dir, "simulation.log"))
	if err != nil {
		t.Fatalf("log sink: %v", err)
	}
	store, err := results.NewCSVStore(filepath.Join(dir, "results"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	running := &peak{}
	sched := &sweep.Scheduler{
		Workers: c.Workers,
		Driver:  scriptedDriver(c, running),
		Store:   store,
		Log:     sink,
		Metrics: prom,
		Logger:  logger.NopLogger{},
		Timeout: c.Timeout(),
	}
	scenarios := make([]model.Scenario, len(c.Scenarios))
	for i, d := range c.Scenarios {
		scenarios[i] = model.Scenario{Name: d.Name, Params: model.Params{}}
	}
	report, err := sched.RunAll(context.Background(), scenarios)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Succeeded != c.Expected.Succeeded || report.Failed != c.Expected.Failed {
		t.Errorf("case %s expected %d/%d succeeded/failed, got %d/%d",
			c.Name, c.Expected.Succeeded, c.Expected.Failed, report.Succeeded, report.Failed)
	}
	for _, res := range report.Results {
		want, ok := c.Expected.Kinds[res.Name]
		if !ok {
			continue
		}
		if got := sweep.FailureKind(res.Err); res.Err == nil || got != want {
			t.Errorf("scenario %s expected kind %s, got %q (%v)", res.Name, want, got, res.Err)
		}
	}

	maxSlots := c.Expected.MaxSlots
	if maxSlots == 0 {
		maxSlots = c.Workers
	}
	if running.max > maxSlots {
		t.Errorf("case %s ran %d drivers at once, limit %d", c.Name, running.max, maxSlots)
	}

	data, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(c.Scenarios) {
		t.Errorf("case %s expected %d log lines, got %d", c.Name, len(c.Scenarios), len(lines))
	}

	for _, res := range report.Results {
		_, statErr := os.Stat(store.Path(res.Name))
		if res.Err == nil && statErr != nil {
			t.Errorf("scenario %s succeeded without artifact", res.Name)
		}
		if res.Err != nil && statErr == nil {
			t.Errorf("scenario %s failed but left an artifact", res.Name)
		}
	}

	got, err := testutil.GatherAndCount(reg, "optses_scenarios_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got == 0 && len(c.Scenarios) > 0 {
		t.Errorf("case %s recorded no scenario metrics", c.Name)
	}
}
