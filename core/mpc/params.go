package mpc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/kilianp07/optses/core/model"
)

// ErrUnsupportedModel is returned for optimisation models other than LP.
var ErrUnsupportedModel = errors.New("unsupported optimisation model")

// SimParams configures the simulated plant.
type SimParams struct {
	StartSOC float64 `mapstructure:"start_soc"`
}

// OptParams configures the optimisation model solved at every step.
type OptParams struct {
	Model          string  `mapstructure:"model"`
	Eff            float64 `mapstructure:"eff"`
	EffD           float64 `mapstructure:"eff_d"`
	MaxFEC         float64 `mapstructure:"max_fec"`
	Power          float64 `mapstructure:"power"`
	EnergyCapacity float64 `mapstructure:"energy_capacity"`
	SOCMin         float64 `mapstructure:"soc_min"`
	SOCMax         float64 `mapstructure:"soc_max"`
}

// Params is the decoded scenario parameter bundle.
type Params struct {
	ProfileFile  string    `mapstructure:"profile_file"`
	HorizonHours float64   `mapstructure:"horizon_hours"`
	TimestepSec  int       `mapstructure:"timestep_sec"`
	TotalHours   float64   `mapstructure:"total_hours"`
	Sim          SimParams `mapstructure:"sim_params"`
	Opt          OptParams `mapstructure:"opt_params"`
}

// DecodeParams converts an opaque bundle into Params and applies defaults.
func DecodeParams(raw model.Params) (Params, error) {
	p := Params{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(map[string]any(raw)); err != nil {
		return p, fmt.Errorf("decode params: %w", err)
	}
	p.SetDefaults()
	return p, p.Validate()
}

// SetDefaults fills optional fields.
func (p *Params) SetDefaults() {
	if p.HorizonHours == 0 {
		p.HorizonHours = 12
	}
	if p.TimestepSec == 0 {
		p.TimestepSec = 900
	}
	if p.Opt.Model == "" {
		p.Opt.Model = "LP"
	}
	if p.Opt.Eff == 0 {
		p.Opt.Eff = 0.9
	}
	if p.Opt.EffD == 0 {
		p.Opt.EffD = p.Opt.Eff
	}
	if p.Opt.Power == 0 {
		p.Opt.Power = 1000
	}
	if p.Opt.EnergyCapacity == 0 {
		p.Opt.EnergyCapacity = 1000
	}
	if p.Opt.SOCMax == 0 {
		p.Opt.SOCMax = 1
	}
}

// Validate checks the fields the driver relies on. Device ranges are checked
// by the storage model itself.
func (p Params) Validate() error {
	if p.ProfileFile == "" {
		return errors.New("profile_file is required")
	}
	if !strings.EqualFold(p.Opt.Model, "LP") {
		return fmt.Errorf("%w: %s", ErrUnsupportedModel, p.Opt.Model)
	}
	if p.TimestepSec < 0 || p.HorizonHours < 0 || p.TotalHours < 0 {
		return errors.New("durations must be positive")
	}
	if p.HorizonSteps() < 1 {
		return fmt.Errorf("horizon %gh shorter than one %ds step", p.HorizonHours, p.TimestepSec)
	}
	if p.Opt.MaxFEC < 0 {
		return fmt.Errorf("max_fec %g < 0", p.Opt.MaxFEC)
	}
	return nil
}

// Step returns the simulation step duration.
func (p Params) Step() time.Duration { return time.Duration(p.TimestepSec) * time.Second }

// HorizonSteps returns the number of steps in one optimisation horizon.
func (p Params) HorizonSteps() int {
	return int(p.HorizonHours * 3600 / float64(p.TimestepSec))
}

// TotalSteps returns the number of simulated steps, 0 meaning the whole profile.
func (p Params) TotalSteps() int {
	return int(p.TotalHours * 3600 / float64(p.TimestepSec))
}
