package mpc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/optses/core/logger"
	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/optimize"
	"github.com/kilianp07/optses/core/storage"
)

// Result table columns.
const (
	ColPrice  = "price"
	ColSOC    = "soc"
	ColPowerC = "powerc"
	ColPowerD = "powerd"
	ColPower  = "power"
)

// LPDriver simulates price arbitrage with a linear storage model. Each step
// re-solves the same optimisation model with the updated start-of-horizon
// state of charge and prices, then applies the first decision.
type LPDriver struct {
	Display Display
	Log     logger.Logger
	// LoadProfile can be replaced to share parsed profiles between runs.
	LoadProfile func(path string) (*Profile, error)
}

// NewLPDriver returns a driver reading profiles from disk.
func NewLPDriver(display Display, log logger.Logger) *LPDriver {
	if display == nil {
		display = NopDisplay{}
	}
	return &LPDriver{Display: display, Log: log, LoadProfile: LoadProfile}
}

// horizon is the optimisation model built once per run.
type horizon struct {
	model  *optimize.Model
	device *storage.Model
	block  *storage.Block
	prices []*optimize.Param
	dt     float64
}

func buildHorizon(p Params, start time.Time) (*horizon, error) {
	device, err := storage.New(p.Opt.Power, p.Opt.EnergyCapacity,
		storage.WithSOCBounds(p.Opt.SOCMin, p.Opt.SOCMax),
		storage.WithSOCStart(p.Sim.StartSOC),
		storage.WithEfficiency(p.Opt.Eff),
		storage.WithDischargeEfficiency(p.Opt.EffD),
	)
	if err != nil {
		return nil, err
	}
	index, err := optimize.NewTimeIndex(start, p.Step(), p.HorizonSteps())
	if err != nil {
		return nil, err
	}
	m := optimize.NewModel()
	dt := index.Hours()
	blk, err := device.Build(index, dt, m)
	if err != nil {
		return nil, err
	}

	h := &horizon{model: m, device: device, block: blk, dt: dt}
	obj := optimize.NewExpr()
	for t := 0; t < index.Len; t++ {
		price, err := m.NewParam(fmt.Sprintf("price[%d]", t), 0)
		if err != nil {
			return nil, err
		}
		h.prices = append(h.prices, price)
		// cost of net consumption: price * dt * (powerc - powerd)
		cost := func() float64 { return price.Value() * dt }
		obj = obj.Add(cost, blk.PowerC, t).Add(optimize.Neg(cost), blk.PowerD, t)
	}
	m.SetObjective(obj, optimize.Minimize)

	if p.Opt.MaxFEC > 0 {
		// discharged energy over the horizon, in full equivalent cycles
		throughput := optimize.NewExpr()
		for t := 0; t < index.Len; t++ {
			throughput = throughput.Add(func() float64 { return dt / blk.EnergyCapacity.Value() }, blk.PowerD, t)
		}
		limit := optimize.Const(p.Opt.MaxFEC)
		m.AddConstraint("max_fec", -1, throughput, optimize.LE, optimize.ConstExpr(limit))
	}
	return h, nil
}

// Run implements Driver.
func (d *LPDriver) Run(ctx context.Context, name string, raw model.Params, slot int) (*model.Table, error) {
	p, err := DecodeParams(raw)
	if err != nil {
		return nil, err
	}
	load := d.LoadProfile
	if load == nil {
		load = LoadProfile
	}
	prof, err := load(p.ProfileFile)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	step := p.Step()
	hsteps := p.HorizonSteps()
	avail := int(prof.End().Sub(prof.Start())/step) - hsteps + 2
	total := p.TotalSteps()
	if total == 0 {
		total = avail
	}
	if total < 1 || total > avail {
		return nil, fmt.Errorf("%w: need %d steps of %s with a %d step horizon", ErrProfileTooShort, total, step, hsteps)
	}

	h, err := buildHorizon(p, prof.Start())
	if err != nil {
		return nil, err
	}

	display := d.Display
	if display == nil {
		display = NopDisplay{}
	}
	tr := display.Track(slot, name, total)
	defer tr.Finish()

	out := model.NewTable(ColPrice, ColSOC, ColPowerC, ColPowerD, ColPower)
	blk := h.block
	soc := p.Sim.StartSOC
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts := prof.Start().Add(time.Duration(i) * step)
		for k, price := range h.prices {
			v, err := prof.At(ts.Add(time.Duration(k) * step))
			if err != nil {
				return nil, err
			}
			price.Set(v)
		}
		if err := h.device.SetSOCStart(soc); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		sol, err := h.model.Solve()
		if err != nil {
			return nil, fmt.Errorf("step %d at %s: %w", i, ts.Format(time.RFC3339), err)
		}

		pc := clamp(sol.Value(blk.PowerC, 0), 0, p.Opt.Power)
		pd := clamp(sol.Value(blk.PowerD, 0), 0, p.Opt.Power)
		soc = clamp(sol.Value(blk.SOC, 0), p.Opt.SOCMin, p.Opt.SOCMax)
		if err := out.Append(ts, h.prices[0].Value(), soc, pc, pd, pc-pd); err != nil {
			return nil, err
		}
		tr.Increment()
	}
	if d.Log != nil {
		d.Log.Debugw("mpc run finished", map[string]any{"scenario": name, "steps": total, "slot": slot})
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
