package plugins

import (
	"github.com/kilianp07/optses/core/logger"
	"github.com/kilianp07/optses/core/mpc"

	// metrics sinks register themselves
	_ "github.com/kilianp07/optses/infra/metrics"
	_ "github.com/kilianp07/optses/infra/mqtt"
)

func init() {
	RegisterDriver("lp", func(display mpc.Display, log logger.Logger) (mpc.Driver, error) {
		d := mpc.NewLPDriver(display, log)
		d.LoadProfile = mpc.NewProfileCache(nil).Load
		return d, nil
	})
}
