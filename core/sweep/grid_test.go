package sweep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridExpand(t *testing.T) {
	g := Grid{
		Base: map[string]any{
			"profile_file": "prices.csv",
			"opt_params":   map[string]any{"model": "LP", "eff": 0.9},
		},
		Axes: map[string][]any{
			"opt_params.max_fec":   {1.0, 2.0},
			"sim_params.start_soc": {0.2, 0.5, 0.8},
		},
	}
	out, err := g.Expand()
	require.NoError(t, err)
	require.Len(t, out, 6)
	assert.Equal(t, "max_fec=1 start_soc=0.2", out[0].Name)
	assert.Equal(t, "max_fec=2 start_soc=0.8", out[5].Name)

	opt := out[5].Params["opt_params"].(map[string]any)
	assert.Equal(t, 2.0, opt["max_fec"])
	assert.Equal(t, "LP", opt["model"])
	assert.Equal(t, 0.8, out[5].Params["sim_params"].(map[string]any)["start_soc"])
	// the base bundle is not shared between scenarios
	_, touched := g.Base["opt_params"].(map[string]any)["max_fec"]
	assert.False(t, touched)
}

func TestGridNameTemplate(t *testing.T) {
	g := Grid{
		Name: "{opt_params.model} fec={opt_params.max_fec}",
		Axes: map[string][]any{"opt_params.model": {"LP"}, "opt_params.max_fec": {1.5}},
	}
	out, err := g.Expand()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "LP fec=1.5", out[0].Name)
}

func TestGridErrors(t *testing.T) {
	_, err := Grid{}.Expand()
	assert.Error(t, err)
	_, err = Grid{Axes: map[string][]any{"a": {}}}.Expand()
	assert.Error(t, err)
	_, err = Grid{Base: map[string]any{"a": 1}, Axes: map[string][]any{"a.b": {1}}}.Expand()
	assert.Error(t, err)
}

func TestLoadScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	data := `scenarios:
  baseline:
    profile_file: prices.csv
grid:
  base:
    profile_file: prices.csv
  axes:
    opt_params.max_fec: [1, 2]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	out, err := LoadScenarios(path)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "baseline", out[0].Name)
	assert.Equal(t, "max_fec=1", out[1].Name)
	assert.Equal(t, "prices.csv", out[2].Params["profile_file"])

	dup := `scenarios:
  max_fec=1: {}
grid:
  axes:
    opt_params.max_fec: [1]
`
	require.NoError(t, os.WriteFile(path, []byte(dup), 0o600))
	_, err = LoadScenarios(path)
	assert.Error(t, err)

	_, err = LoadScenarios(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(-time.Second))
	assert.Equal(t, "00:00:59", FormatElapsed(59*time.Second))
	assert.Equal(t, "27:46:40", FormatElapsed(100000*time.Second))
	assert.Equal(t, "Simulation A finished in 00:01:05.", FinishedMessage("A", 65*time.Second))
}
