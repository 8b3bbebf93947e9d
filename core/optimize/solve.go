package optimize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const tolerance = 1e-9

var (
	// ErrInfeasible indicates no assignment satisfies the constraints.
	ErrInfeasible = errors.New("lp infeasible")
	// ErrUnbounded indicates the objective can decrease without limit.
	ErrUnbounded = errors.New("lp unbounded")
	// ErrNumerical covers singular bases and other solver breakdowns.
	ErrNumerical = errors.New("lp numerical failure")
	// ErrEmpty is returned when the model declares no variables.
	ErrEmpty = errors.New("lp has no variables")
)

// SolveError wraps a solver failure with its classification.
type SolveError struct {
	Reason error
	Err    error
}

func (e *SolveError) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v: %v", e.Reason, e.Err)
}
func (e *SolveError) Unwrap() error { return e.Reason }

// Kind names the failure class for log lines.
func (e *SolveError) Kind() string {
	switch {
	case errors.Is(e.Reason, ErrInfeasible):
		return "Infeasible"
	case errors.Is(e.Reason, ErrUnbounded):
		return "Unbounded"
	default:
		return "NumericalError"
	}
}

// Solution holds the values of one solve.
type Solution struct {
	x         []float64
	Objective float64
}

// Value returns v[t] in the solution.
func (s *Solution) Value(v *Var, t int) float64 { return s.x[v.col(t)] }

// Values returns v over its full length.
func (s *Solution) Values(v *Var) []float64 {
	out := make([]float64, v.n)
	copy(out, s.x[v.offset:v.offset+v.n])
	return out
}

// Eval evaluates e against the solution.
func (s *Solution) Eval(e Expr) float64 { return e.Eval(s.Value) }

// lpSolve points to the standard-form solver. It can be overridden in tests.
var lpSolve = func(c []float64, a mat.Matrix, b []float64) ([]float64, error) {
	_, x, err := lp.Simplex(c, a, b, tolerance, nil)
	return x, err
}

// Solve assembles the current numeric problem and runs the simplex method.
func (m *Model) Solve() (*Solution, error) {
	if m.cols == 0 {
		return nil, ErrEmpty
	}
	sf, err := m.standardForm()
	if err != nil {
		return nil, err
	}

	y := make([]float64, sf.n)
	if len(sf.b) > 0 {
		a, c, b := sf.dense()
		yStd, err := lpSolve(c, a, b)
		if err != nil {
			return nil, classify(err)
		}
		for j, k := range sf.keep {
			y[k] = yStd[j]
		}
	}

	x := make([]float64, m.cols)
	for i, cm := range sf.cols {
		x[i] = cm.value(y)
	}
	sol := &Solution{x: x}
	sol.Objective = sol.Eval(m.objective)
	return sol, nil
}

// stdCol maps a model column onto non-negative standard form columns:
// x = shift + sign*y[pos] - y[neg]. A negative index means the column is
// absent, so a fixed variable has neither.
type stdCol struct {
	shift    float64
	sign     float64
	pos, neg int
}

func (c stdCol) value(y []float64) float64 {
	v := c.shift
	if c.pos >= 0 {
		v += c.sign * y[c.pos]
	}
	if c.neg >= 0 {
		v -= y[c.neg]
	}
	return v
}

// stdRow is one sparse equality row; slack is +1 or -1 when the row carries
// its own slack column.
type stdRow struct {
	coef  map[int]float64
	rhs   float64
	slack float64
}

// stdForm is min c.y subject to A y = b, y >= 0, built without splitting
// bounded variables.
type stdForm struct {
	cols []stdCol
	c    []float64
	rows []stdRow
	n    int
	// keep lists the columns that appear in at least one row, in order.
	keep []int
	b    []float64
}

func (m *Model) standardForm() (*stdForm, error) {
	sf := &stdForm{cols: make([]stdCol, m.cols)}
	for _, v := range m.vars {
		lo, hi := v.Lower(), v.Upper()
		if lo > hi {
			return nil, &SolveError{Reason: ErrInfeasible, Err: fmt.Errorf("%s bounds [%g, %g]", v.name, lo, hi)}
		}
		for t := 0; t < v.n; t++ {
			cm := stdCol{sign: 1, pos: -1, neg: -1}
			switch {
			case lo == hi:
				cm.shift = lo
			case !math.IsInf(lo, -1):
				cm.shift, cm.pos = lo, sf.n
				sf.n++
				if !math.IsInf(hi, 1) {
					sf.rows = append(sf.rows, stdRow{coef: map[int]float64{cm.pos: 1}, rhs: hi - lo, slack: 1})
				}
			case !math.IsInf(hi, 1):
				cm.shift, cm.sign, cm.pos = hi, -1, sf.n
				sf.n++
			default:
				cm.pos, cm.neg = sf.n, sf.n+1
				sf.n += 2
			}
			sf.cols[v.col(t)] = cm
		}
	}

	sense := 1.0
	if m.sense == Maximize {
		sense = -1
	}
	cost := make(map[int]float64)
	for _, t := range m.objective.Terms {
		cm := sf.cols[t.Var.col(t.T)]
		k := sense * t.Coef()
		if cm.pos >= 0 {
			cost[cm.pos] += k * cm.sign
		}
		if cm.neg >= 0 {
			cost[cm.neg] -= k
		}
	}

	for _, con := range m.constraints {
		acc := make([]float64, m.cols)
		for _, t := range con.Expr.Terms {
			acc[t.Var.col(t.T)] += t.Coef()
		}
		row := stdRow{coef: make(map[int]float64), rhs: -con.Expr.ConstValue()}
		for i, a := range acc {
			if a == 0 {
				continue
			}
			cm := sf.cols[i]
			row.rhs -= a * cm.shift
			if cm.pos >= 0 {
				row.coef[cm.pos] += a * cm.sign
			}
			if cm.neg >= 0 {
				row.coef[cm.neg] -= a
			}
		}
		for k, a := range row.coef {
			if math.Abs(a) < tolerance {
				delete(row.coef, k)
			}
		}
		switch con.Op {
		case LE:
			row.slack = 1
		case GE:
			row.slack = -1
		}
		if len(row.coef) == 0 {
			if !constantHolds(row.rhs, con.Op) {
				return nil, &SolveError{Reason: ErrInfeasible, Err: fmt.Errorf("%s: 0 %s %g", con.Name, con.Op, row.rhs)}
			}
			continue
		}
		sf.rows = append(sf.rows, row)
	}

	for i := range sf.rows {
		if sf.rows[i].slack != 0 {
			sf.rows[i].coef[sf.n] = sf.rows[i].slack
			sf.n++
		}
	}

	used := make([]bool, sf.n)
	for _, r := range sf.rows {
		for k := range r.coef {
			used[k] = true
		}
	}
	sf.c = make([]float64, 0, sf.n)
	for k := 0; k < sf.n; k++ {
		if used[k] {
			sf.keep = append(sf.keep, k)
			sf.c = append(sf.c, cost[k])
			continue
		}
		// A column outside every row only moves the objective.
		if cost[k] < -tolerance {
			return nil, &SolveError{Reason: ErrUnbounded}
		}
	}
	if len(sf.rows) > len(sf.keep) {
		return nil, &SolveError{Reason: ErrNumerical, Err: fmt.Errorf("%d rows over %d columns", len(sf.rows), len(sf.keep))}
	}
	sf.b = make([]float64, len(sf.rows))
	for i, r := range sf.rows {
		sf.b[i] = r.rhs
	}
	return sf, nil
}

// dense lays the rows out over the kept columns. Rows are negated where
// needed so that b is non-negative.
func (sf *stdForm) dense() (*mat.Dense, []float64, []float64) {
	index := make(map[int]int, len(sf.keep))
	for j, k := range sf.keep {
		index[k] = j
	}
	a := mat.NewDense(len(sf.rows), len(sf.keep), nil)
	b := make([]float64, len(sf.rows))
	for i, r := range sf.rows {
		flip := 1.0
		if r.rhs < 0 {
			flip = -1
		}
		b[i] = flip * r.rhs
		for k, v := range r.coef {
			a.Set(i, index[k], flip*v)
		}
	}
	return a, sf.c, b
}

func constantHolds(rhs float64, op Op) bool {
	switch op {
	case LE:
		return rhs >= -tolerance
	case GE:
		return rhs <= tolerance
	default:
		return math.Abs(rhs) <= tolerance
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &SolveError{Reason: ErrInfeasible, Err: err}
	case errors.Is(err, lp.ErrUnbounded):
		return &SolveError{Reason: ErrUnbounded, Err: err}
	default:
		return &SolveError{Reason: ErrNumerical, Err: err}
	}
}
