package sweep

import "github.com/kilianp07/optses/core/mpc"

// Progress shows the aggregate counter and hands out per-slot trackers to
// the driver.
type Progress interface {
	mpc.Display
	// Start sizes the aggregate counter.
	Start(total int)
	// Done advances the aggregate counter by one finished scenario.
	Done(name string, err error)
	Stop()
}

// NopProgress discards progress.
type NopProgress struct {
	mpc.NopDisplay
}

func (NopProgress) Start(int)          {}
func (NopProgress) Done(string, error) {}
func (NopProgress) Stop()              {}
