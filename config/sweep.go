package config

import (
	"fmt"
	"time"
)

// SweepConfig controls the parallel scenario run.
type SweepConfig struct {
	// Workers is the pool size; 0 uses every CPU.
	Workers       int    `json:"workers"`
	ScenariosFile string `json:"scenarios_file"`
	// Driver names the registered simulation driver.
	Driver string `json:"driver"`
	// LogPath is the shared simulation log.
	LogPath string `json:"log_path"`
	// TimeoutSeconds bounds one scenario; 0 disables the bound.
	TimeoutSeconds int  `json:"scenario_timeout_seconds"`
	NoProgress     bool `json:"no_progress"`
	// Report is an optional JSON summary written after the run.
	Report string `json:"report"`
}

// SetDefaults applies sane defaults.
func (c *SweepConfig) SetDefaults() {
	if c.ScenariosFile == "" {
		c.ScenariosFile = "scenarios.yaml"
	}
	if c.LogPath == "" {
		c.LogPath = "simulation.log"
	}
	if c.Driver == "" {
		c.Driver = "lp"
	}
}

// Validate checks value ranges.
func (c SweepConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers %d < 0", c.Workers)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("scenario_timeout_seconds %d < 0", c.TimeoutSeconds)
	}
	if c.LogPath == "" {
		return fmt.Errorf("log_path is required")
	}
	return nil
}

// Timeout returns the per-scenario bound.
func (c SweepConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
