package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/optses/core/metrics"
	"github.com/kilianp07/optses/infra/logger"
	"github.com/kilianp07/optses/infra/monitoring"
	"github.com/kilianp07/optses/infra/results"
)

// Config is the application configuration. Scenario definitions live in a
// separate file referenced by sweep.scenarios_file.
type Config struct {
	Sweep   SweepConfig       `json:"sweep"`
	Results results.Config    `json:"results"`
	Logging logger.Config     `json:"logging"`
	Metrics metrics.Config    `json:"metrics"`
	Sentry  monitoring.Config `json:"sentry"`
	Prices  PricesConfig      `json:"prices"`
	API     APIConfig         `json:"api"`
}

// Load reads a YAML or JSON file, applies K_ prefixed environment overrides
// (K_SWEEP__WORKERS=4), then defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills optional fields of every section.
func (c *Config) SetDefaults() {
	c.Sweep.SetDefaults()
	c.Prices.SetDefaults()
	if c.Results.Format == "" {
		c.Results.Format = "csv"
	}
	if c.Results.Dir == "" {
		c.Results.Dir = "results"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.AppLog != "" && c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Sweep.Validate(); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if err := c.Prices.Validate(); err != nil {
		return fmt.Errorf("prices: %w", err)
	}
	known := false
	for _, f := range results.Formats() {
		if f == strings.ToLower(c.Results.Format) {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("results: unknown format %q (known: %s)", c.Results.Format, strings.Join(results.Formats(), ", "))
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must be positive")
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d without type", i)
		}
	}
	return nil
}
