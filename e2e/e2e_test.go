//go:build !no_containers

package e2e

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/optses/app"
	"github.com/kilianp07/optses/app/plugins"
	"github.com/kilianp07/optses/config"
	"github.com/kilianp07/optses/core/factory"
	"github.com/kilianp07/optses/core/logger"
	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/mpc"
)

// junitReport is a minimal representation of a JUnit XML report so CI
// systems can display per-scenario results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// startInflux starts an InfluxDB 2.7 container with an initial org, bucket
// and token.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "optses",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "optses-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a Mosquitto broker accepting anonymous clients.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// subscribe collects status messages published under optses/.
func subscribe(t *testing.T, broker string) (*sync.Map, func()) {
	t.Helper()
	got := &sync.Map{}
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-watcher")
	cli := paho.NewClient(opts)
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		t.Skipf("mosquitto not ready: %v", tok.Error())
	}
	tok := cli.Subscribe("optses/+/status", 1, func(_ paho.Client, m paho.Message) {
		got.Store(m.Topic(), string(m.Payload()))
	})
	if tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}
	return got, func() { cli.Disconnect(100) }
}

func init() {
	// flat schedule, fails for scenarios marked broken
	plugins.RegisterDriver("e2e", func(_ mpc.Display, _ logger.Logger) (mpc.Driver, error) {
		return mpc.DriverFunc(func(ctx context.Context, name string, p model.Params, _ int) (*model.Table, error) {
			if p["broken"] == true {
				return nil, errors.New("broken scenario")
			}
			t := model.NewTable(mpc.ColPower)
			start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 4; i++ {
				if err := t.Append(start.Add(time.Duration(i)*time.Hour), float64(i)); err != nil {
					return nil, err
				}
			}
			return t, nil
		}), nil
	})
}

// Test_E2E_SweepSinks runs a small sweep with the InfluxDB and MQTT sinks
// against real brokers and checks that every scenario reached both.
func Test_E2E_SweepSinks(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, mqttURL := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	if err := cli.SetupBucket(ctx); err != nil {
		t.Fatalf("setup bucket: %v", err)
	}
	statuses, unsubscribe := subscribe(t, mqttURL)
	defer unsubscribe()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Sweep.Driver = "e2e"
	cfg.Sweep.Workers = 2
	cfg.Sweep.NoProgress = true
	cfg.Sweep.LogPath = filepath.Join(dir, "simulation.log")
	cfg.Results.Dir = filepath.Join(dir, "results")
	cfg.Metrics.Sinks = []factory.ModuleConfig{
		{Type: "influx", Conf: map[string]any{"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket}},
		{Type: "mqtt", Conf: map[string]any{"broker": mqttURL, "client_id": "e2e-sweep", "qos": 1}},
	}
	svc, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	scenarios := []model.Scenario{
		{Name: "a", Params: model.Params{}},
		{Name: "b", Params: model.Params{"broken": true}},
		{Name: "c", Params: model.Params{}},
	}
	report, err := svc.Run(ctx, scenarios)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %d succeeded, %d failed", report.Succeeded, report.Failed)
	}

	statusByName, err := cli.ScenarioStatuses(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(statusByName) != len(scenarios) || statusByName["b"] != "failed" {
		t.Fatalf("influx statuses %v, want %d scenarios with b failed", statusByName, len(scenarios))
	}

	deadline := time.Now().Add(5 * time.Second)
	rep := junitReport{Name: "e2e"}
	for _, sc := range scenarios {
		topic := fmt.Sprintf("optses/%s/status", sc.Name)
		var ok bool
		for !ok && time.Now().Before(deadline) {
			if _, ok = statuses.Load(topic); !ok {
				time.Sleep(50 * time.Millisecond)
			}
		}
		tcase := junitTestCase{Name: sc.Name}
		if !ok {
			msg := "no status on " + topic
			tcase.Failure = &msg
			rep.Failures++
			t.Errorf("%s", msg)
		}
		rep.Cases = append(rep.Cases, tcase)
	}
	rep.Tests = len(rep.Cases)
	if err := writeJUnit(filepath.Join(dir, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
