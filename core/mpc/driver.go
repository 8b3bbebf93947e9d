// Package mpc runs rolling-horizon simulations of a storage device against a
// price profile.
package mpc

import (
	"context"

	"github.com/kilianp07/optses/core/model"
)

// Driver runs one scenario to completion and returns its time-indexed
// result. slot identifies the display row reserved for the run.
type Driver interface {
	Run(ctx context.Context, name string, params model.Params, slot int) (*model.Table, error)
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context, name string, params model.Params, slot int) (*model.Table, error)

func (f DriverFunc) Run(ctx context.Context, name string, params model.Params, slot int) (*model.Table, error) {
	return f(ctx, name, params, slot)
}

// Tracker follows the progress of one run.
type Tracker interface {
	Increment()
	Finish()
}

// Display hands out trackers positioned on a display row.
type Display interface {
	Track(slot int, label string, total int) Tracker
}

// NopDisplay discards progress.
type NopDisplay struct{}

func (NopDisplay) Track(int, string, int) Tracker { return nopTracker{} }

type nopTracker struct{}

func (nopTracker) Increment() {}
func (nopTracker) Finish()    {}
