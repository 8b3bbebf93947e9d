// Package scenarios runs YAML-described sweep acceptance cases against the
// scheduler with scripted drivers.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/optses/core/optimize"
)

// ScenarioDef scripts the driver outcome of one scenario.
type ScenarioDef struct {
	Name    string `yaml:"name"`
	DelayMS int    `yaml:"delay_ms"`
	// Fail is one of "", error, infeasible, unbounded, panic or hang.
	Fail string `yaml:"fail,omitempty"`
	Rows int    `yaml:"rows"`
}

// Expected is the observable outcome of a case.
type Expected struct {
	Succeeded int               `yaml:"succeeded"`
	Failed    int               `yaml:"failed"`
	Kinds     map[string]string `yaml:"kinds,omitempty"`
	// MaxSlots bounds the observed concurrency; 0 means the worker count.
	MaxSlots int `yaml:"max_slots,omitempty"`
}

// Case is one acceptance case.
type Case struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Workers     int           `yaml:"workers"`
	TimeoutMS   int           `yaml:"timeout_ms,omitempty"`
	Scenarios   []ScenarioDef `yaml:"scenarios"`
	Expected    Expected      `yaml:"expected"`
}

// Timeout returns the per-scenario bound of the case.
func (c Case) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Workers < 1 {
		return nil, fmt.Errorf("%s: workers must be >= 1", path)
	}
	return &c, nil
}

// scriptedError maps a failure name to the error the driver returns.
func scriptedError(fail string) error {
	switch fail {
	case "infeasible":
		return &optimize.SolveError{Reason: optimize.ErrInfeasible}
	case "unbounded":
		return &optimize.SolveError{Reason: optimize.ErrUnbounded}
	default:
		return fmt.Errorf("scripted failure")
	}
}
