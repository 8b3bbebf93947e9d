package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/optses/core/metrics"
	"github.com/kilianp07/optses/infra/logger"
)

// Logger is the logging interface used by the sinks.
type Logger = logger.Logger

// InfluxSink writes one scenario_run point per finished scenario.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails, so an unreachable database never blocks a sweep.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Recorder {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Point converts ev to the scenario_run measurement.
func Point(ev coremetrics.ScenarioEvent) *write.Point {
	p := write.NewPointWithMeasurement("scenario_run").
		AddTag("run_id", ev.RunID).
		AddTag("scenario", ev.Scenario).
		AddTag("status", ev.Status).
		AddTag("slot", strconv.Itoa(ev.Slot)).
		AddField("duration_s", ev.Duration.Seconds())
	if ev.Kind != "" {
		p = p.AddTag("kind", ev.Kind)
	}
	if ev.Err != "" {
		p = p.AddField("error", ev.Err)
	}
	return p.SetTime(ev.Time)
}

// RecordScenario writes the event.
func (s *InfluxSink) RecordScenario(ev coremetrics.ScenarioEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, Point(ev))
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
