// Package results persists scenario result tables as one artifact per
// scenario.
package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilianp07/optses/core/factory"
	"github.com/kilianp07/optses/core/model"
)

// Store saves a result table under a scenario name.
type Store interface {
	Save(ctx context.Context, name string, t *model.Table) error
	Close() error
}

// Config selects the artifact format and output directory.
type Config struct {
	Format string `json:"format"`
	Dir    string `json:"dir"`
}

var registry = factory.NewRegistry[Store]()

func init() {
	_ = registry.Register("csv", func(conf map[string]any) (Store, error) {
		dir, err := decodeDir(conf)
		if err != nil {
			return nil, err
		}
		return NewCSVStore(dir)
	})
	_ = registry.Register("jsonl", func(conf map[string]any) (Store, error) {
		dir, err := decodeDir(conf)
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(dir)
	})
	_ = registry.Register("sqlite", func(conf map[string]any) (Store, error) {
		dir, err := decodeDir(conf)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(filepath.Join(dir, "results.db"))
	})
}

func decodeDir(conf map[string]any) (string, error) {
	var c Config
	if err := factory.Decode(conf, &c); err != nil {
		return "", err
	}
	if c.Dir == "" {
		c.Dir = "results"
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	return c.Dir, nil
}

// New returns the store for cfg.Format, csv by default.
func New(cfg Config) (Store, error) {
	format := cfg.Format
	if format == "" {
		format = "csv"
	}
	return registry.Create(factory.ModuleConfig{Type: format, Conf: map[string]any{"dir": cfg.Dir}})
}

// Formats lists the supported artifact formats.
func Formats() []string { return registry.Names() }

// writeAtomic writes through a temporary file renamed into place, so a
// failed save never leaves a partial artifact behind.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
