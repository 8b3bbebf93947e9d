package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/optses/app/plugins"
	"github.com/kilianp07/optses/config"
	"github.com/kilianp07/optses/core/factory"
	"github.com/kilianp07/optses/core/logger"
	coremetrics "github.com/kilianp07/optses/core/metrics"
	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/mpc"
	"github.com/kilianp07/optses/core/sweep"
)

// duringRun is called by the scripted driver while a scenario is running.
var duringRun func() *sweep.StatusSnapshot

// trackedSink records whether the service released it.
type trackedSink struct{ closed bool }

func (*trackedSink) RecordScenario(coremetrics.ScenarioEvent) error { return nil }
func (*trackedSink) RecordSlotsInUse(int) error                    { return nil }
func (s *trackedSink) Close() error {
	s.closed = true
	return nil
}

var lastTracked *trackedSink

func init() {
	_ = coremetrics.RegisterSink("tracked", func(map[string]any) (coremetrics.Recorder, error) {
		lastTracked = &trackedSink{}
		return lastTracked, nil
	})
	plugins.RegisterDriver("scripted", func(display mpc.Display, _ logger.Logger) (mpc.Driver, error) {
		return mpc.DriverFunc(func(_ context.Context, name string, p model.Params, slot int) (*model.Table, error) {
			tr := display.Track(slot, name, 1)
			defer tr.Finish()
			if duringRun != nil {
				duringRun()
			}
			if p["fail"] == true {
				return nil, errors.New("scripted failure")
			}
			tr.Increment()
			t := model.NewTable(mpc.ColSOC)
			if err := t.Append(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 0.5); err != nil {
				return nil, err
			}
			return t, nil
		}), nil
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Sweep.Driver = "scripted"
	cfg.Sweep.Workers = 2
	cfg.Sweep.NoProgress = true
	cfg.Sweep.LogPath = filepath.Join(dir, "simulation.log")
	cfg.Sweep.Report = filepath.Join(dir, "report.json")
	cfg.Results.Format = "sqlite"
	cfg.Results.Dir = filepath.Join(dir, "results")
	return cfg
}

func TestServiceRun(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg, nil)
	require.NoError(t, err)

	report, err := svc.Run(context.Background(), []model.Scenario{
		{Name: "a", Params: model.Params{}},
		{Name: "b", Params: model.Params{"fail": true}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	data, err := os.ReadFile(cfg.Sweep.Report)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, report.RunID, out["run_id"])
}

func TestServiceUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sweep.Driver = "missing"
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "tracked"}}
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "unknown driver")
	require.NotNil(t, lastTracked)
	assert.True(t, lastTracked.closed, "metrics sink left open")
}

func TestServiceAPIDuringRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sweep.Workers = 1
	cfg.API.Addr = freeAddr(t)
	svc, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	var seen *sweep.StatusSnapshot
	duringRun = func() *sweep.StatusSnapshot {
		if seen != nil {
			return seen
		}
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			resp, err := http.Get("http://" + cfg.API.Addr + "/api/sweep/status")
			if err == nil {
				var snap sweep.StatusSnapshot
				_ = json.NewDecoder(resp.Body).Decode(&snap)
				_ = resp.Body.Close()
				seen = &snap
				return seen
			}
			time.Sleep(10 * time.Millisecond)
		}
		return nil
	}
	defer func() { duringRun = nil }()

	_, err = svc.Run(context.Background(), []model.Scenario{{Name: "only", Params: model.Params{}}})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 1, seen.Total)
	require.Len(t, seen.Running, 1)
	assert.Equal(t, "only", seen.Running[0].Scenario)
}
