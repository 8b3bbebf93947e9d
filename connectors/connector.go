// Package connectors fetches market price profiles from remote providers.
package connectors

import (
	"context"

	"github.com/kilianp07/optses/core/mpc"
)

// ErrIncompatibleOption is the format of errors for options a source does
// not support.
const ErrIncompatibleOption = "option %s is not supported by %s"

// PriceSource fetches a price profile.
type PriceSource interface {
	Fetch(ctx context.Context, opts ...Option) (*mpc.Profile, error)
}

// Option configures a single fetch.
type Option func(PriceSource) error
