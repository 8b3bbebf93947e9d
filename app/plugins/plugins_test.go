package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/optses/core/factory"
	coremetrics "github.com/kilianp07/optses/core/metrics"
	"github.com/kilianp07/optses/core/mpc"
)

func TestNewDriver(t *testing.T) {
	d, err := NewDriver("LP", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &mpc.LPDriver{}, d)

	_, err = NewDriver("milp", nil, nil)
	assert.ErrorContains(t, err, "unknown driver")
	assert.Contains(t, DriverNames(), "lp")
}

func TestBuiltinSinksRegistered(t *testing.T) {
	r, err := coremetrics.NewSink(nil)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, r)
	_, err = coremetrics.NewSink([]factory.ModuleConfig{{Type: "nop"}})
	assert.NoError(t, err)
}
