package storage

import (
	"errors"
	"fmt"

	"github.com/kilianp07/optses/core/optimize"
)

const (
	// ConstraintSOCBalance names the per-step state transition rows.
	ConstraintSOCBalance = "soc_balance"
	// ConstraintPowerEnd names the terminal zero power row.
	ConstraintPowerEnd = "power_end"
)

// Block holds the parameters, variables and constraints a Model attached to
// a parent optimization model.
type Block struct {
	Index optimize.TimeIndex
	Dt    float64

	MaxPower       *optimize.Param
	EnergyCapacity *optimize.Param
	SOCMin         *optimize.Param
	SOCMax         *optimize.Param
	SOCStart       *optimize.Param
	EffC           *optimize.Param
	EffD           *optimize.Param

	SOC    *optimize.Var
	PowerC *optimize.Var
	PowerD *optimize.Var

	SOCBalance []*optimize.Constraint
	PowerEnd   *optimize.Constraint
}

// Power returns the net power expression powerc[t] - powerd[t].
func (b *Block) Power(t int) optimize.Expr {
	return optimize.VarExpr(b.PowerC, t).Add(optimize.Neg(optimize.One), b.PowerD, t)
}

// Build declares the device on parent over index with step duration dt in
// hours. A Model can be attached to one parent model.
func (m *Model) Build(index optimize.TimeIndex, dt float64, parent *optimize.Model) (*Block, error) {
	if parent == nil {
		return nil, errors.New("storage: nil parent model")
	}
	if index.Len <= 0 {
		return nil, fmt.Errorf("storage: empty time index")
	}
	if dt <= 0 {
		return nil, fmt.Errorf("storage: dt must be positive, got %g", dt)
	}
	if m.blk != nil {
		return nil, fmt.Errorf("storage %s already built", m.Name)
	}

	b := &Block{Index: index, Dt: dt}
	params := []struct {
		dst  **optimize.Param
		name string
		val  float64
	}{
		{&b.MaxPower, "max_power", m.spec.Power},
		{&b.EnergyCapacity, "energy_capacity", m.spec.EnergyCapacity},
		{&b.SOCMin, "soc_min", m.spec.SOCMin},
		{&b.SOCMax, "soc_max", m.spec.SOCMax},
		{&b.SOCStart, "soc_start", m.spec.SOCStart},
		{&b.EffC, "effc", m.spec.EffC},
		{&b.EffD, "effd", m.spec.EffD},
	}
	for _, p := range params {
		param, err := parent.NewParam(m.Name+"."+p.name, p.val)
		if err != nil {
			return nil, err
		}
		*p.dst = param
	}

	var err error
	n := index.Len
	if b.SOC, err = parent.NewVar(m.Name+".soc", n, b.SOCMin, b.SOCMax); err != nil {
		return nil, err
	}
	if b.PowerC, err = parent.NewVar(m.Name+".powerc", n, optimize.Fixed(0), b.MaxPower); err != nil {
		return nil, err
	}
	if b.PowerD, err = parent.NewVar(m.Name+".powerd", n, optimize.Fixed(0), b.MaxPower); err != nil {
		return nil, err
	}

	// dt*effc/capacity and dt/(effd*capacity), read at solve time.
	chargeGain := func() float64 { return b.Dt * b.EffC.Value() / b.EnergyCapacity.Value() }
	dischargeLoss := func() float64 { return b.Dt / (b.EffD.Value() * b.EnergyCapacity.Value()) }

	name := m.Name + "." + ConstraintSOCBalance
	for t := index.First(); t <= index.Last(); t++ {
		var prev optimize.Expr
		if t == index.First() {
			prev = optimize.ConstExpr(b.SOCStart.Coef())
		} else {
			prev = optimize.VarExpr(b.SOC, t-1)
		}
		rhs := prev.
			Add(chargeGain, b.PowerC, t).
			Add(optimize.Neg(dischargeLoss), b.PowerD, t)
		b.SOCBalance = append(b.SOCBalance, parent.AddConstraint(name, t, optimize.VarExpr(b.SOC, t), optimize.EQ, rhs))
	}

	last := index.Last()
	end := optimize.VarExpr(b.PowerC, last).Add(optimize.One, b.PowerD, last)
	b.PowerEnd = parent.AddConstraint(m.Name+"."+ConstraintPowerEnd, -1, end, optimize.EQ, optimize.ConstExpr(optimize.Const(0)))

	m.blk = b
	return b, nil
}

// Block returns the attached block or nil before Build.
func (m *Model) Block() *Block { return m.blk }

// SetSOCStart moves the start-of-horizon state of charge for the next solve.
func (m *Model) SetSOCStart(soc float64) error {
	next := m.spec
	next.SOCStart = soc
	return m.apply(next)
}

// SetMaxPower updates the power limit.
func (m *Model) SetMaxPower(power float64) error {
	next := m.spec
	next.Power = power
	return m.apply(next)
}

// SetEnergyCapacity updates the usable capacity.
func (m *Model) SetEnergyCapacity(capacity float64) error {
	next := m.spec
	next.EnergyCapacity = capacity
	return m.apply(next)
}

// SetSOCBounds updates the allowed state of charge range.
func (m *Model) SetSOCBounds(lo, hi float64) error {
	next := m.spec
	next.SOCMin, next.SOCMax = lo, hi
	return m.apply(next)
}

// SetEfficiency updates the charge and discharge efficiencies.
func (m *Model) SetEfficiency(effc, effd float64) error {
	next := m.spec
	next.EffC, next.EffD = effc, effd
	return m.apply(next)
}

func (m *Model) apply(next Spec) error {
	if err := next.Validate(); err != nil {
		return err
	}
	m.spec = next
	if b := m.blk; b != nil {
		b.MaxPower.Set(next.Power)
		b.EnergyCapacity.Set(next.EnergyCapacity)
		b.SOCMin.Set(next.SOCMin)
		b.SOCMax.Set(next.SOCMax)
		b.SOCStart.Set(next.SOCStart)
		b.EffC.Set(next.EffC)
		b.EffD.Set(next.EffD)
	}
	return nil
}
