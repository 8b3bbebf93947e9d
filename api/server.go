package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/optses/api/results"
	"github.com/kilianp07/optses/api/sweep"
	"github.com/kilianp07/optses/core/logger"
)

// NewMux routes the API. A nil loader leaves the results routes out.
func NewMux(status sweep.StatusSource, loader results.Loader, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/sweep/status", RequireToken(token, sweep.NewStatusHandler(status)))
	if loader != nil {
		mux.Handle("/api/results", RequireToken(token, results.NewListHandler(loader)))
		mux.Handle("/api/results/", RequireToken(token, results.NewTableHandler(loader)))
	}
	return mux
}

// Serve listens on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && log != nil {
			log.Errorf("api server shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
