// Package expr is a small symbolic expression tree: symbols, float constants,
// n-ary sums and products, powers and named function applications.
//
// It provides what the evaluation core needs from an algebra library:
// free-symbol introspection, substitution, a printable form and a structural
// key. It does not simplify.
package expr

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/atomic"
)

type Expr interface {
	String() string
	// Subs returns the expression with symbols replaced according to m.
	// Unchanged subtrees are shared, not copied
	Subs(m map[*Symbol]Expr) Expr
	Equal(other Expr) bool
	exprType() string
	writeKey(w *bytes.Buffer)
	collectSymbols(out map[*Symbol]struct{})
	precedence() int
}

const (
	precAdd = iota + 1
	precMul
	precPow
	precAtom
)

// ============================================================
// Symbol
// ============================================================

// Symbol is an identity token. Two symbols are the same variable only if they
// are the same pointer, regardless of their display names
type Symbol struct {
	name string
	id   uint64
}

var symbolCounter = atomic.NewUint64(0)

func S(name string) *Symbol {
	return &Symbol{name: name, id: symbolCounter.Inc()}
}

// Symbols creates one fresh symbol per name
func Symbols(names ...string) []*Symbol {
	ret := make([]*Symbol, len(names))
	for i, n := range names {
		ret[i] = S(n)
	}
	return ret
}

func (s *Symbol) Name() string             { return s.name }
func (s *Symbol) ID() uint64               { return s.id }
func (s *Symbol) String() string           { return s.name }
func (s *Symbol) Equal(other Expr) bool    { o, ok := other.(*Symbol); return ok && s == o }
func (s *Symbol) exprType() string         { return "sym" }
func (s *Symbol) precedence() int          { return precAtom }
func (s *Symbol) writeKey(w *bytes.Buffer) { fmt.Fprintf(w, "s%d", s.id) }
func (s *Symbol) GoString() string         { return fmt.Sprintf("%s#%d", s.name, s.id) }

func (s *Symbol) collectSymbols(out map[*Symbol]struct{}) {
	out[s] = struct{}{}
}

func (s *Symbol) Subs(m map[*Symbol]Expr) Expr {
	if r, ok := m[s]; ok {
		return r
	}
	return s
}

// ============================================================
// Num
// ============================================================

type Num struct{ val float64 }

func N(v float64) *Num        { return &Num{val: v} }
func Int(n int64) *Num        { return &Num{val: float64(n)} }
func (n *Num) Value() float64 { return n.val }

func (n *Num) String() string             { return strconv.FormatFloat(n.val, 'g', -1, 64) }
func (n *Num) Subs(map[*Symbol]Expr) Expr { return n }
func (n *Num) exprType() string           { return "num" }

func (n *Num) collectSymbols(map[*Symbol]struct{}) {}

func (n *Num) precedence() int {
	if n.val < 0 {
		return precAdd
	}
	return precAtom
}

func (n *Num) Equal(other Expr) bool {
	o, ok := other.(*Num)
	if !ok {
		return false
	}
	return n.val == o.val || (math.IsNaN(n.val) && math.IsNaN(o.val))
}

func (n *Num) writeKey(w *bytes.Buffer) {
	w.WriteString("n")
	w.WriteString(strconv.FormatUint(math.Float64bits(n.val), 16))
}

// ============================================================
// Add
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr {
	switch len(terms) {
	case 0:
		return Int(0)
	case 1:
		return terms[0]
	}
	return &Add{terms: terms}
}

func SubOf(a, b Expr) Expr { return AddOf(a, Neg(b)) }

func (a *Add) Terms() []Expr    { return a.terms }
func (a *Add) exprType() string { return "add" }
func (a *Add) precedence() int  { return precAdd }

func (a *Add) String() string {
	var buf strings.Builder
	for i, t := range a.terms {
		s := t.String()
		if i > 0 {
			if strings.HasPrefix(s, "-") {
				buf.WriteString(" - ")
				s = s[1:]
			} else {
				buf.WriteString(" + ")
			}
		}
		buf.WriteString(s)
	}
	return buf.String()
}

func (a *Add) Subs(m map[*Symbol]Expr) Expr {
	terms, changed := subsAll(a.terms, m)
	if !changed {
		return a
	}
	return &Add{terms: terms}
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	return ok && equalAll(a.terms, o.terms)
}

func (a *Add) writeKey(w *bytes.Buffer) { writeKeyCall(w, "add", a.terms) }

func (a *Add) collectSymbols(out map[*Symbol]struct{}) {
	for _, t := range a.terms {
		t.collectSymbols(out)
	}
}

// ============================================================
// Mul
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr {
	switch len(factors) {
	case 0:
		return Int(1)
	case 1:
		return factors[0]
	}
	return &Mul{factors: factors}
}

func Neg(a Expr) Expr {
	if n, ok := a.(*Num); ok {
		return N(-n.val)
	}
	return MulOf(Int(-1), a)
}

func DivOf(a, b Expr) Expr { return MulOf(a, PowOf(b, Int(-1))) }

func (m *Mul) Factors() []Expr  { return m.factors }
func (m *Mul) exprType() string { return "mul" }
func (m *Mul) precedence() int  { return precMul }

func (m *Mul) String() string {
	factors := m.factors
	prefix := ""
	if n, ok := factors[0].(*Num); ok && n.val == -1 && len(factors) > 1 {
		prefix = "-"
		factors = factors[1:]
	}
	parts := make([]string, len(factors))
	for i, f := range factors {
		parts[i] = parenthesize(f, precMul)
	}
	return prefix + strings.Join(parts, "*")
}

func (m *Mul) Subs(s map[*Symbol]Expr) Expr {
	factors, changed := subsAll(m.factors, s)
	if !changed {
		return m
	}
	return &Mul{factors: factors}
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	return ok && equalAll(m.factors, o.factors)
}

func (m *Mul) writeKey(w *bytes.Buffer) { writeKeyCall(w, "mul", m.factors) }

func (m *Mul) collectSymbols(out map[*Symbol]struct{}) {
	for _, f := range m.factors {
		f.collectSymbols(out)
	}
}

// ============================================================
// Pow
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return &Pow{base: base, exp: exp} }
func SqrtOf(arg Expr) Expr      { return PowOf(arg, N(0.5)) }

func (p *Pow) Base() Expr       { return p.base }
func (p *Pow) Exponent() Expr   { return p.exp }
func (p *Pow) exprType() string { return "pow" }
func (p *Pow) precedence() int  { return precPow }

func (p *Pow) String() string {
	// right associative, so a nested power on the right needs no parentheses
	return parenthesize(p.base, precPow+1) + "^" + parenthesize(p.exp, precPow)
}

func (p *Pow) Subs(m map[*Symbol]Expr) Expr {
	base, exp := p.base.Subs(m), p.exp.Subs(m)
	if base == p.base && exp == p.exp {
		return p
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) writeKey(w *bytes.Buffer) { writeKeyCall(w, "pow", []Expr{p.base, p.exp}) }

func (p *Pow) collectSymbols(out map[*Symbol]struct{}) {
	p.base.collectSymbols(out)
	p.exp.collectSymbols(out)
}

// ============================================================
// Func
// ============================================================

type Func struct {
	name string
	args []Expr
}

// Call applies a function by name. Whether the name means anything is up to
// whoever evaluates the expression
func Call(name string, args ...Expr) Expr { return &Func{name: name, args: args} }

func SinOf(arg Expr) Expr   { return Call("sin", arg) }
func CosOf(arg Expr) Expr   { return Call("cos", arg) }
func TanOf(arg Expr) Expr   { return Call("tan", arg) }
func ExpOf(arg Expr) Expr   { return Call("exp", arg) }
func LogOf(arg Expr) Expr   { return Call("log", arg) }
func AbsOf(arg Expr) Expr   { return Call("abs", arg) }
func AtanOf(arg Expr) Expr  { return Call("atan", arg) }
func TanhOf(arg Expr) Expr  { return Call("tanh", arg) }
func FloorOf(arg Expr) Expr { return Call("floor", arg) }

// Where is the piecewise selector: then when cond is non-zero, otherwise els
func Where(cond, then, els Expr) Expr { return Call("where", cond, then, els) }
func Lt(a, b Expr) Expr               { return Call("lt", a, b) }
func Gt(a, b Expr) Expr               { return Call("gt", a, b) }

func (f *Func) FuncName() string { return f.name }
func (f *Func) Args() []Expr     { return f.args }
func (f *Func) exprType() string { return "func" }
func (f *Func) precedence() int  { return precAtom }

func (f *Func) String() string {
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = a.String()
	}
	return f.name + "(" + strings.Join(parts, ", ") + ")"
}

func (f *Func) Subs(m map[*Symbol]Expr) Expr {
	args, changed := subsAll(f.args, m)
	if !changed {
		return f
	}
	return &Func{name: f.name, args: args}
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.name == o.name && equalAll(f.args, o.args)
}

func (f *Func) writeKey(w *bytes.Buffer) { writeKeyCall(w, "f:"+f.name, f.args) }

func (f *Func) collectSymbols(out map[*Symbol]struct{}) {
	for _, a := range f.args {
		a.collectSymbols(out)
	}
}

// ============================================================
// Tree utilities
// ============================================================

// Key returns the structural key of the expression. Symbols contribute their
// identity, so two trees built from the same symbols in the same shape have
// equal keys while same-named but distinct symbols do not
func Key(e Expr) []byte {
	var buf bytes.Buffer
	e.writeKey(&buf)
	return buf.Bytes()
}

// FreeSymbols returns the symbols occurring in e ordered by display name,
// then by creation order
func FreeSymbols(e Expr) []*Symbol {
	set := make(map[*Symbol]struct{})
	e.collectSymbols(set)
	ret := make([]*Symbol, 0, len(set))
	for s := range set {
		ret = append(ret, s)
	}
	SortSymbols(ret)
	return ret
}

func SortSymbols(syms []*Symbol) {
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].name != syms[j].name {
			return syms[i].name < syms[j].name
		}
		return syms[i].id < syms[j].id
	})
}

func Subs(e Expr, m map[*Symbol]Expr) Expr {
	if len(m) == 0 {
		return e
	}
	return e.Subs(m)
}

// subsAll reports if any of the elements changed
func subsAll(lst []Expr, m map[*Symbol]Expr) ([]Expr, bool) {
	ret := make([]Expr, len(lst))
	changed := false
	for i, e := range lst {
		ret[i] = e.Subs(m)
		changed = changed || ret[i] != e
	}
	return ret, changed
}

func equalAll(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func writeKeyCall(w *bytes.Buffer, tag string, args []Expr) {
	w.WriteString(tag)
	w.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			w.WriteByte(',')
		}
		a.writeKey(w)
	}
	w.WriteByte(')')
}

func parenthesize(e Expr, prec int) string {
	if e.precedence() < prec {
		return "(" + e.String() + ")"
	}
	return e.String()
}
