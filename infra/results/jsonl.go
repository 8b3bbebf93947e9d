package results

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/kilianp07/optses/core/model"
)

// JSONLStore writes <dir>/<name>.jsonl, one object per time step.
type JSONLStore struct {
	dir string
}

func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JSONLStore{dir: dir}, nil
}

func (s *JSONLStore) Path(name string) string {
	return filepath.Join(s.dir, model.FileName(name)+".jsonl")
}

func (s *JSONLStore) Save(ctx context.Context, name string, t *model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(s.Path(name), func(f *os.File) error {
		enc := json.NewEncoder(f)
		for i, ts := range t.Index {
			rec := make(map[string]any, len(t.Columns)+1)
			rec["time"] = ts.Format(time.RFC3339)
			for j, v := range t.Row(i) {
				rec[t.Columns[j]] = v
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *JSONLStore) Close() error { return nil }
