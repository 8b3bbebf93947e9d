package plugins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/optses/core/logger"
	"github.com/kilianp07/optses/core/mpc"
)

// DriverFactory builds a simulation driver reporting to display.
type DriverFactory func(display mpc.Display, log logger.Logger) (mpc.Driver, error)

var Drivers = map[string]DriverFactory{}

func RegisterDriver(name string, f DriverFactory) { Drivers[strings.ToLower(name)] = f }

// NewDriver builds the driver registered under name.
func NewDriver(name string, display mpc.Display, log logger.Logger) (mpc.Driver, error) {
	f, ok := Drivers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q (known: %s)", name, strings.Join(DriverNames(), ", "))
	}
	return f(display, log)
}

// DriverNames lists the registered drivers in order.
func DriverNames() []string {
	out := make([]string, 0, len(Drivers))
	for n := range Drivers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
