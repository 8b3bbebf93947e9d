// Package optimize provides a small time-indexed linear programming layer.
// Components attach parameters, variables and constraints to a shared Model;
// coefficients are read from mutable parameters at solve time so the same
// structure can be re-solved after parameters change.
package optimize

import (
	"fmt"
	"math"
	"time"
)

// TimeIndex is a finite, ordered set of equally spaced time steps.
type TimeIndex struct {
	Start time.Time
	Step  time.Duration
	Len   int
}

// NewTimeIndex returns an index of n steps starting at start.
func NewTimeIndex(start time.Time, step time.Duration, n int) (TimeIndex, error) {
	if n <= 0 {
		return TimeIndex{}, fmt.Errorf("time index needs at least one step, got %d", n)
	}
	if step <= 0 {
		return TimeIndex{}, fmt.Errorf("time index step must be positive, got %s", step)
	}
	return TimeIndex{Start: start, Step: step, Len: n}, nil
}

// First returns the first step.
func (ti TimeIndex) First() int { return 0 }

// Last returns the last step.
func (ti TimeIndex) Last() int { return ti.Len - 1 }

// Time returns the wall-clock start of step t.
func (ti TimeIndex) Time(t int) time.Time { return ti.Start.Add(time.Duration(t) * ti.Step) }

// Hours returns the step duration in hours.
func (ti TimeIndex) Hours() float64 { return ti.Step.Hours() }

// Param is a named scalar whose value may change between solves.
type Param struct {
	name  string
	value float64
}

// NewParam creates a parameter with an initial value.
func NewParam(name string, v float64) *Param { return &Param{name: name, value: v} }

func (p *Param) Name() string   { return p.name }
func (p *Param) Value() float64 { return p.value }
func (p *Param) Set(v float64)  { p.value = v }
func (p *Param) String() string { return fmt.Sprintf("%s=%g", p.name, p.value) }

// Coef returns a coefficient that tracks the parameter value.
func (p *Param) Coef() Coef { return p.Value }

// Bound is a lower or upper variable bound. A nil Bound is unbounded.
type Bound interface {
	Value() float64
}

// Fixed is a constant bound.
type Fixed float64

func (f Fixed) Value() float64 { return float64(f) }

// Var is a decision variable defined for every step of a time index.
type Var struct {
	name   string
	offset int
	n      int
	lo, hi Bound
}

func (v *Var) Name() string { return v.name }
func (v *Var) Len() int     { return v.n }

// Lower returns the current lower bound at solve time or -Inf.
func (v *Var) Lower() float64 {
	if v.lo == nil {
		return math.Inf(-1)
	}
	return v.lo.Value()
}

// Upper returns the current upper bound at solve time or +Inf.
func (v *Var) Upper() float64 {
	if v.hi == nil {
		return math.Inf(1)
	}
	return v.hi.Value()
}

func (v *Var) col(t int) int {
	if t < 0 || t >= v.n {
		panic(fmt.Sprintf("optimize: %s[%d] out of range [0,%d)", v.name, t, v.n))
	}
	return v.offset + t
}

// Op is a constraint relation.
type Op int

const (
	EQ Op = iota
	LE
	GE
)

func (o Op) String() string {
	switch o {
	case EQ:
		return "=="
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "?"
	}
}

// Constraint stores Expr op 0 where Expr = lhs - rhs.
type Constraint struct {
	Name string
	// Step is the time step the row belongs to, -1 for scalar constraints.
	Step int
	Expr Expr
	Op   Op
}

// Residual evaluates lhs - rhs for the given assignment.
func (c *Constraint) Residual(value func(v *Var, t int) float64) float64 {
	return c.Expr.Eval(value)
}

// Sense selects minimisation or maximisation.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Model collects parameters, variables and constraints.
type Model struct {
	params      map[string]*Param
	vars        []*Var
	byName      map[string]*Var
	constraints []*Constraint
	objective   Expr
	sense       Sense
	cols        int
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{params: make(map[string]*Param), byName: make(map[string]*Var)}
}

// NewParam declares a mutable parameter. Names must be unique.
func (m *Model) NewParam(name string, v float64) (*Param, error) {
	if _, ok := m.params[name]; ok {
		return nil, fmt.Errorf("param %s already declared", name)
	}
	p := NewParam(name, v)
	m.params[name] = p
	return p, nil
}

// Param looks up a declared parameter.
func (m *Model) Param(name string) (*Param, bool) {
	p, ok := m.params[name]
	return p, ok
}

// NewVar declares a variable over n steps bounded by lo and hi.
func (m *Model) NewVar(name string, n int, lo, hi Bound) (*Var, error) {
	if n <= 0 {
		return nil, fmt.Errorf("var %s: length must be positive", name)
	}
	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("var %s already declared", name)
	}
	v := &Var{name: name, offset: m.cols, n: n, lo: lo, hi: hi}
	m.cols += n
	m.vars = append(m.vars, v)
	m.byName[name] = v
	return v, nil
}

// Var looks up a declared variable.
func (m *Model) Var(name string) (*Var, bool) {
	v, ok := m.byName[name]
	return v, ok
}

// AddConstraint declares lhs op rhs for step t (-1 when not time indexed).
func (m *Model) AddConstraint(name string, t int, lhs Expr, op Op, rhs Expr) *Constraint {
	c := &Constraint{Name: name, Step: t, Expr: lhs.Minus(rhs), Op: op}
	m.constraints = append(m.constraints, c)
	return c
}

// Constraints returns the rows declared under name in declaration order.
func (m *Model) Constraints(name string) []*Constraint {
	var out []*Constraint
	for _, c := range m.constraints {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// NumConstraints returns the number of declared rows, excluding bounds.
func (m *Model) NumConstraints() int { return len(m.constraints) }

// NumCols returns the number of scalar decision variables.
func (m *Model) NumCols() int { return m.cols }

// SetObjective replaces the objective.
func (m *Model) SetObjective(e Expr, s Sense) {
	m.objective = e
	m.sense = s
}

// Objective returns the current objective expression.
func (m *Model) Objective() Expr { return m.objective }
