package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/optses/core/factory"
	coremetrics "github.com/kilianp07/optses/core/metrics"
)

func TestPromSinkRecordScenario(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordScenario(coremetrics.ScenarioEvent{Scenario: "A", Status: coremetrics.StatusSucceeded, Duration: 3 * time.Second}))
	require.NoError(t, sink.RecordScenario(coremetrics.ScenarioEvent{Scenario: "B", Status: coremetrics.StatusFailed}))
	require.NoError(t, sink.RecordScenario(coremetrics.ScenarioEvent{Scenario: "C", Status: coremetrics.StatusSucceeded}))
	require.NoError(t, sink.RecordSlotsInUse(3))

	expected := `
# HELP optses_scenarios_total Finished scenarios by outcome
# TYPE optses_scenarios_total counter
optses_scenarios_total{status="failed"} 1
optses_scenarios_total{status="succeeded"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(sink.scenarios, strings.NewReader(expected)))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.duration))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.slots))

	// a second sink on the same registry shares the collectors
	again, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, again.RecordScenario(coremetrics.ScenarioEvent{Status: coremetrics.StatusFailed}))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.scenarios.WithLabelValues(coremetrics.StatusFailed)))
}

func TestInfluxSinkRecordScenario(t *testing.T) {
	var (
		mu   sync.Mutex
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer func() { _ = sink.Close() }()
	now := time.Unix(1700000000, 0)
	ev := coremetrics.ScenarioEvent{
		RunID:    "run-1",
		Scenario: "B",
		Slot:     2,
		Status:   coremetrics.StatusFailed,
		Kind:     "Infeasible",
		Duration: 1500 * time.Millisecond,
		Err:      "lp infeasible",
		Time:     now,
	}
	require.NoError(t, sink.RecordScenario(ev))

	p := write.NewPointWithMeasurement("scenario_run").
		AddTag("run_id", "run-1").
		AddTag("scenario", "B").
		AddTag("status", "failed").
		AddTag("slot", "2").
		AddTag("kind", "Infeasible").
		AddField("duration_s", 1.5).
		AddField("error", "lp infeasible").
		SetTime(now)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)), strings.TrimSpace(body))
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called)
}

func TestRegisteredSinks(t *testing.T) {
	s, err := coremetrics.NewSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	s, err = coremetrics.NewSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "prometheus"}})
	require.NoError(t, err)
	multi, ok := s.(*coremetrics.MultiSink)
	require.True(t, ok)
	assert.Len(t, multi.Sinks, 2)
	assert.NoError(t, multi.RecordSlotsInUse(1))
	assert.NoError(t, multi.Close())

	_, err = coremetrics.NewSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}
