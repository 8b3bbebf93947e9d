package optimize

// Coef yields a coefficient value at solve time.
type Coef func() float64

// Const returns a coefficient with a fixed value.
func Const(v float64) Coef { return func() float64 { return v } }

// One is the unit coefficient.
var One = Const(1)

// Neg negates a coefficient.
func Neg(c Coef) Coef { return func() float64 { return -c() } }

// Term is coef * v[t].
type Term struct {
	Coef Coef
	Var  *Var
	T    int
}

// Expr is a linear expression of terms plus a constant.
type Expr struct {
	Terms    []Term
	Constant Coef
}

// NewExpr returns an empty expression.
func NewExpr() Expr { return Expr{} }

// VarExpr returns the expression 1*v[t].
func VarExpr(v *Var, t int) Expr { return NewExpr().Add(One, v, t) }

// ConstExpr returns an expression consisting of a single constant.
func ConstExpr(c Coef) Expr { return NewExpr().AddConst(c) }

// Add appends coef*v[t] and returns the extended expression.
func (e Expr) Add(c Coef, v *Var, t int) Expr {
	terms := make([]Term, len(e.Terms), len(e.Terms)+1)
	copy(terms, e.Terms)
	return Expr{Terms: append(terms, Term{Coef: c, Var: v, T: t}), Constant: e.Constant}
}

// AddConst adds c to the constant part.
func (e Expr) AddConst(c Coef) Expr {
	prev := e.Constant
	out := Expr{Terms: e.Terms}
	if prev == nil {
		out.Constant = c
	} else {
		out.Constant = func() float64 { return prev() + c() }
	}
	return out
}

// Plus returns e + o.
func (e Expr) Plus(o Expr) Expr {
	out := e
	for _, t := range o.Terms {
		out = out.Add(t.Coef, t.Var, t.T)
	}
	if o.Constant != nil {
		out = out.AddConst(o.Constant)
	}
	return out
}

// Minus returns e - o.
func (e Expr) Minus(o Expr) Expr {
	out := e
	for _, t := range o.Terms {
		out = out.Add(Neg(t.Coef), t.Var, t.T)
	}
	if o.Constant != nil {
		out = out.AddConst(Neg(o.Constant))
	}
	return out
}

// ConstValue evaluates the constant part.
func (e Expr) ConstValue() float64 {
	if e.Constant == nil {
		return 0
	}
	return e.Constant()
}

// Eval evaluates the expression with the provided variable values.
func (e Expr) Eval(value func(v *Var, t int) float64) float64 {
	sum := e.ConstValue()
	for _, t := range e.Terms {
		sum += t.Coef() * value(t.Var, t.T)
	}
	return sum
}

// Coefficient returns the summed coefficient of v[t] in e.
func (e Expr) Coefficient(v *Var, t int) float64 {
	var sum float64
	for _, term := range e.Terms {
		if term.Var == v && term.T == t {
			sum += term.Coef()
		}
	}
	return sum
}
