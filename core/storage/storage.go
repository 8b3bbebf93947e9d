// Package storage formulates a battery energy-storage device as linear
// constraints on a time-indexed optimization model.
package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec is returned for physically meaningless device parameters.
var ErrInvalidSpec = errors.New("invalid storage spec")

// Spec describes the device. Power is in W and EnergyCapacity in Wh.
type Spec struct {
	Power          float64
	EnergyCapacity float64
	SOCStart       float64
	SOCMin         float64
	SOCMax         float64
	EffC           float64
	EffD           float64
}

// Option customises a Spec.
type Option func(*Spec)

// WithSOCStart sets the initial state of charge.
func WithSOCStart(soc float64) Option { return func(s *Spec) { s.SOCStart = soc } }

// WithSOCBounds sets the allowed state of charge range.
func WithSOCBounds(lo, hi float64) Option {
	return func(s *Spec) {
		s.SOCMin = lo
		s.SOCMax = hi
	}
}

// WithEfficiency sets the charge efficiency. The discharge efficiency
// follows unless set explicitly.
func WithEfficiency(effc float64) Option { return func(s *Spec) { s.EffC = effc } }

// WithDischargeEfficiency sets an asymmetric discharge efficiency.
func WithDischargeEfficiency(effd float64) Option { return func(s *Spec) { s.EffD = effd } }

// NewSpec builds a validated Spec with defaults soc_start 0.5, bounds
// (0, 1) and effc 0.9.
func NewSpec(power, energyCapacity float64, opts ...Option) (Spec, error) {
	s := Spec{Power: power, EnergyCapacity: energyCapacity, SOCStart: 0.5, SOCMin: 0, SOCMax: 1, EffC: 0.9}
	for _, o := range opts {
		o(&s)
	}
	if s.EffD == 0 {
		s.EffD = s.EffC
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Validate checks the spec ranges.
func (s Spec) Validate() error {
	switch {
	case s.Power < 0:
		return fmt.Errorf("%w: power %g < 0", ErrInvalidSpec, s.Power)
	case s.EnergyCapacity <= 0:
		// capacity divides the state transition
		return fmt.Errorf("%w: energy capacity %g must be > 0", ErrInvalidSpec, s.EnergyCapacity)
	case s.SOCMin < 0 || s.SOCMax > 1:
		return fmt.Errorf("%w: soc bounds (%g, %g) outside [0, 1]", ErrInvalidSpec, s.SOCMin, s.SOCMax)
	case s.SOCMin >= s.SOCMax:
		return fmt.Errorf("%w: soc_min %g >= soc_max %g", ErrInvalidSpec, s.SOCMin, s.SOCMax)
	case s.SOCStart < s.SOCMin || s.SOCStart > s.SOCMax:
		return fmt.Errorf("%w: soc_start %g outside [%g, %g]", ErrInvalidSpec, s.SOCStart, s.SOCMin, s.SOCMax)
	case s.EffC <= 0 || s.EffC > 1:
		return fmt.Errorf("%w: effc %g outside (0, 1]", ErrInvalidSpec, s.EffC)
	case s.EffD <= 0 || s.EffD > 1:
		return fmt.Errorf("%w: effd %g outside (0, 1]", ErrInvalidSpec, s.EffD)
	}
	return nil
}

// Model is a storage device ready to be attached to an optimization model.
type Model struct {
	Name string
	spec Spec
	blk  *Block
}

// New validates the device parameters and returns a Model named "storage".
func New(power, energyCapacity float64, opts ...Option) (*Model, error) {
	spec, err := NewSpec(power, energyCapacity, opts...)
	if err != nil {
		return nil, err
	}
	return &Model{Name: "storage", spec: spec}, nil
}

// FromSpec wraps an existing spec after validating it.
func FromSpec(s Spec) (*Model, error) {
	if s.EffD == 0 {
		s.EffD = s.EffC
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Model{Name: "storage", spec: s}, nil
}

// Spec returns the current device parameters.
func (m *Model) Spec() Spec { return m.spec }
