package sweep

import (
	"encoding/json"
	"net/http"

	coresweep "github.com/kilianp07/optses/core/sweep"
)

// StatusSource provides the state of the running sweep.
type StatusSource interface {
	Snapshot() coresweep.StatusSnapshot
}

// NewStatusHandler returns an HTTP handler exposing sweep progress via GET /api/sweep/status.
func NewStatusHandler(src StatusSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(src.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
