package results

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/optses/core/model"
)

// Loader reads stored result tables.
type Loader interface {
	Load(ctx context.Context, name string, columns ...string) (*model.Table, error)
	Scenarios(ctx context.Context) ([]string, error)
}

// Row is one time step of a table.
type Row struct {
	Time   time.Time          `json:"time"`
	Values map[string]float64 `json:"values"`
}

// Table is the JSON form of a result table.
type Table struct {
	Scenario string   `json:"scenario"`
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
}

// NewListHandler lists stored scenarios via GET /api/results.
func NewListHandler(l Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		names, err := l.Scenarios(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, names)
	})
}

// NewTableHandler serves one table via GET /api/results/{scenario}. The
// optional columns query parameter is a comma separated subset.
func NewTableHandler(l Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/api/results/")
		if name == "" {
			http.Error(w, "scenario required", http.StatusBadRequest)
			return
		}
		var cols []string
		if c := r.URL.Query().Get("columns"); c != "" {
			cols = strings.Split(c, ",")
		}
		t, err := l.Load(r.Context(), name, cols...)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		out := Table{Scenario: name, Columns: t.Columns, Rows: make([]Row, t.Len())}
		for i, ts := range t.Index {
			vals := make(map[string]float64, len(t.Columns))
			for j, v := range t.Row(i) {
				vals[t.Columns[j]] = v
			}
			out.Rows[i] = Row{Time: ts, Values: vals}
		}
		writeJSON(w, out)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
