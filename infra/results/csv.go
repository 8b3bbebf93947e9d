package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kilianp07/optses/core/model"
)

// CSVStore writes <dir>/<name>.csv with a leading "time" column.
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSVStore{dir: dir}, nil
}

// Path returns the artifact path of a scenario.
func (s *CSVStore) Path(name string) string {
	return filepath.Join(s.dir, model.FileName(name)+".csv")
}

func (s *CSVStore) Save(ctx context.Context, name string, t *model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(s.Path(name), func(f *os.File) error { return WriteCSV(f, t) })
}

func (s *CSVStore) Close() error { return nil }

// WriteCSV encodes t with one row per time step.
func WriteCSV(out io.Writer, t *model.Table) error {
	w := csv.NewWriter(out)
	if err := w.Write(append([]string{"time"}, t.Columns...)); err != nil {
		return err
	}
	row := make([]string, len(t.Columns)+1)
	for i, ts := range t.Index {
		row[0] = ts.Format(time.RFC3339)
		for j, v := range t.Row(i) {
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCSV loads an artifact written by CSVStore.
func ReadCSV(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 1 || header[0] != "time" {
		return nil, fmt.Errorf("%s: first column must be time", path)
	}
	t := model.NewTable(header[1:]...)
	vals := make([]float64, len(header)-1)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, err
		}
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return nil, err
			}
		}
		if err := t.Append(ts, vals...); err != nil {
			return nil, err
		}
	}
}
