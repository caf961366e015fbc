package numfl

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/atomic"
)

// Library is the namespace formulas are compiled against: the builtin numeric
// functions plus whatever a caller layers on top
type Library struct {
	id        uint64
	parent    *Library
	funByName map[string]*funDescriptor
	frozen    *atomic.Bool
}

var (
	libraryCounter = atomic.NewUint64(0)
	theLibrary     = newLibrary(nil)
)

func newLibrary(parent *Library) *Library {
	return &Library{
		id:        libraryCounter.Inc(),
		parent:    parent,
		funByName: make(map[string]*funDescriptor),
		frozen:    atomic.NewBool(false),
	}
}

var keywords = map[string]struct{}{
	"def": {},
}

func init() {
	// arithmetics
	embedVarargs("add", 0, evalAdd)
	embedVarargs("mul", 0, evalMul)
	embed("sub", 2, evalSub)
	embed("div", 2, evalDiv)
	embed("neg", 1, evalNeg)
	embed("pow", 2, evalPow)
	embed("mod", 2, evalMod)
	embedVarargs("min", 1, evalMin)
	embedVarargs("max", 1, evalMax)
	// elementary
	embedUnary("sqrt", math.Sqrt)
	embedUnary("exp", math.Exp)
	embedUnary("log", math.Log)
	embedUnary("log10", math.Log10)
	embedUnary("abs", math.Abs)
	embedUnary("sin", math.Sin)
	embedUnary("cos", math.Cos)
	embedUnary("tan", math.Tan)
	embedUnary("asin", math.Asin)
	embedUnary("acos", math.Acos)
	embedUnary("atan", math.Atan)
	embedUnary("sinh", math.Sinh)
	embedUnary("cosh", math.Cosh)
	embedUnary("tanh", math.Tanh)
	embedUnary("floor", math.Floor)
	embedUnary("ceil", math.Ceil)
	embedUnary("sign", sign)
	embed("atan2", 2, func(par *CallParams) float64 { return math.Atan2(par.Arg(0), par.Arg(1)) })
	embed("hypot", 2, func(par *CallParams) float64 { return math.Hypot(par.Arg(0), par.Arg(1)) })
	// constants
	embedConst("pi", math.Pi)
	embedConst("e", math.E)
	embedConst("inf", math.Inf(1))
	embedConst("nan", math.NaN())
	// comparison and logic, 1 is true, 0 is false
	embed("lt", 2, func(par *CallParams) float64 { return boolValue(par.Arg(0) < par.Arg(1)) })
	embed("gt", 2, func(par *CallParams) float64 { return boolValue(par.Arg(0) > par.Arg(1)) })
	embed("eq", 2, func(par *CallParams) float64 { return boolValue(par.Arg(0) == par.Arg(1)) })
	embed("not", 1, func(par *CallParams) float64 { return boolValue(par.Arg(0) == 0) })
	embedVarargs("and", 0, evalAnd)
	embedVarargs("or", 0, evalOr)
	embed("where", 3, evalWhere)
	// defined in the language itself
	extend("def le(a, b) = or(lt(a, b), eq(a, b))")
	extend("def ge(a, b) = or(gt(a, b), eq(a, b))")
	extend("def ne(a, b) = not(eq(a, b))")
	extend("def cot(x) = div(1, tan(x))")
	extend("def sec(x) = div(1, cos(x))")
	extend("def csc(x) = div(1, sin(x))")
	extend("def sinc(x) = where(eq(x, 0), 1, div(sin(x), x))")

	theLibrary.Freeze()
}

func mustUniqueName(sym string) {
	if _, found := theLibrary.funByName[sym]; found {
		panic(fmt.Errorf("repeating symbol '%s'", sym))
	}
}

func embed(sym string, requiredNumPar int, evalFun EvalFunction) {
	mustUniqueName(sym)
	theLibrary.funByName[sym] = &funDescriptor{
		sym:               sym,
		requiredNumParams: requiredNumPar,
		evalFun:           evalFun,
	}
}

func embedVarargs(sym string, minNumPar int, evalFun EvalFunction) {
	mustUniqueName(sym)
	theLibrary.funByName[sym] = &funDescriptor{
		sym:               sym,
		requiredNumParams: -1,
		minNumParams:      minNumPar,
		evalFun:           evalFun,
	}
}

func embedUnary(sym string, fun func(float64) float64) {
	embed(sym, 1, func(par *CallParams) float64 { return fun(par.Arg(0)) })
}

func embedConst(sym string, v float64) {
	embed(sym, 0, func(_ *CallParams) float64 { return v })
}

func extend(source string) {
	if err := theLibrary.ExtendSource(source); err != nil {
		panic(err)
	}
}

// Builtin returns the library of builtin functions. It can't be extended,
// use NewLibrary for that
func Builtin() *Library {
	return theLibrary
}

// NewLibrary creates an extendable layer on top of the builtin library
func NewLibrary(custom ...CustomFunction) (*Library, error) {
	ret := theLibrary.NewLayer()
	if err := ret.Extend(custom...); err != nil {
		return nil, err
	}
	return ret, nil
}

// NewLayer creates an extendable library which sees all functions of lib
func (lib *Library) NewLayer() *Library {
	return newLibrary(lib)
}

// ID is unique for each library in the process
func (lib *Library) ID() uint64 {
	return lib.id
}

// Freeze prevents further extension. Compiled functions bind library functions
// at compile time, so a library must not change once it is used
func (lib *Library) Freeze() {
	lib.frozen.Store(true)
}

func (lib *Library) IsFrozen() bool {
	return lib.frozen.Load()
}

// IsKeyword returns true for words with meaning in the formula syntax
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// IsIdentifier checks if s can name a parameter or a function
func IsIdentifier(s string) bool {
	if len(s) == 0 || IsKeyword(s) {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Extend adds custom functions to the library. A custom function shadows a
// builtin one with the same name
func (lib *Library) Extend(fns ...CustomFunction) error {
	if lib.frozen.Load() {
		return fmt.Errorf("can't extend frozen library")
	}
	for i := range fns {
		cf := fns[i]
		if !IsIdentifier(cf.Name) {
			return fmt.Errorf("wrong custom function name '%s'", cf.Name)
		}
		if cf.Fun == nil {
			return fmt.Errorf("custom function '%s' is nil", cf.Name)
		}
		if _, already := lib.funByName[cf.Name]; already {
			return fmt.Errorf("repeating custom function '%s'", cf.Name)
		}
		lib.funByName[cf.Name] = &funDescriptor{
			sym:               cf.Name,
			requiredNumParams: cf.NumParams,
			evalFun: func(par *CallParams) float64 {
				return cf.Fun(par.evalAll()...)
			},
			isCustom: true,
		}
	}
	return nil
}

// ExtendSource compiles function definitions and adds them to the library.
// Each definition can use the ones before it
func (lib *Library) ExtendSource(source string) error {
	if lib.frozen.Load() {
		return fmt.Errorf("can't extend frozen library")
	}
	parsed, err := ParseFunctions(source)
	if err != nil {
		return err
	}
	for _, fp := range parsed {
		if lib.Exists(fp.Sym) && (lib.parent == nil || lib.funByName[fp.Sym] != nil) {
			return fmt.Errorf("repeating function '%s'", fp.Sym)
		}
		f, err := CompileFunction(lib, fp)
		if err != nil {
			return err
		}
		lib.funByName[fp.Sym] = &funDescriptor{
			sym:               fp.Sym,
			requiredNumParams: f.NumParams(),
			evalFun: func(par *CallParams) float64 {
				return f.Call(par.evalAll())
			},
			isCustom: lib.parent != nil,
		}
	}
	return nil
}

func (lib *Library) lookup(sym string) *funDescriptor {
	for l := lib; l != nil; l = l.parent {
		if fd, ok := l.funByName[sym]; ok {
			return fd
		}
	}
	return nil
}

func (lib *Library) Exists(sym string) bool {
	return lib.lookup(sym) != nil
}

func (lib *Library) resolve(sym string, numArgs int) (*funDescriptor, error) {
	fd := lib.lookup(sym)
	if fd == nil {
		return nil, fmt.Errorf("undefined symbol '%s'", sym)
	}
	if fd.requiredNumParams >= 0 && fd.requiredNumParams != numArgs {
		return nil, fmt.Errorf("'%s' requires %d arguments, got %d", sym, fd.requiredNumParams, numArgs)
	}
	if fd.requiredNumParams < 0 && numArgs < fd.minNumParams {
		return nil, fmt.Errorf("'%s' requires at least %d arguments, got %d", sym, fd.minNumParams, numArgs)
	}
	return fd, nil
}

// Arity returns number of parameters of the function, -1 for variadic
func (lib *Library) Arity(sym string) (int, bool) {
	fd := lib.lookup(sym)
	if fd == nil {
		return 0, false
	}
	return fd.requiredNumParams, true
}

// MinArity returns the minimal number of arguments of the function. For
// functions with fixed arity it is the arity
func (lib *Library) MinArity(sym string) (int, bool) {
	fd := lib.lookup(sym)
	if fd == nil {
		return 0, false
	}
	if fd.requiredNumParams >= 0 {
		return fd.requiredNumParams, true
	}
	return fd.minNumParams, true
}

// Names returns sorted names of all functions visible in the library
func (lib *Library) Names() []string {
	seen := make(map[string]struct{})
	for l := lib; l != nil; l = l.parent {
		for sym := range l.funByName {
			seen[sym] = struct{}{}
		}
	}
	ret := make([]string, 0, len(seen))
	for sym := range seen {
		ret = append(ret, sym)
	}
	sort.Strings(ret)
	return ret
}

// CustomNames returns sorted names of functions added on top of the builtin library
func (lib *Library) CustomNames() []string {
	ret := make([]string, 0)
	for l := lib; l != nil; l = l.parent {
		for sym, fd := range l.funByName {
			if fd.isCustom {
				ret = append(ret, sym)
			}
		}
	}
	sort.Strings(ret)
	return ret
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return x
}

func evalAdd(par *CallParams) float64 {
	ret := 0.0
	for i := 0; i < par.Arity(); i++ {
		ret += par.Arg(i)
	}
	return ret
}

func evalMul(par *CallParams) float64 {
	ret := 1.0
	for i := 0; i < par.Arity(); i++ {
		ret *= par.Arg(i)
	}
	return ret
}

func evalSub(par *CallParams) float64 { return par.Arg(0) - par.Arg(1) }
func evalDiv(par *CallParams) float64 { return par.Arg(0) / par.Arg(1) }
func evalNeg(par *CallParams) float64 { return -par.Arg(0) }
func evalMod(par *CallParams) float64 { return math.Mod(par.Arg(0), par.Arg(1)) }

func evalPow(par *CallParams) float64 {
	base, exp := par.Arg(0), par.Arg(1)
	if exp == 2 {
		return base * base
	}
	return math.Pow(base, exp)
}

func evalMin(par *CallParams) float64 {
	ret := par.Arg(0)
	for i := 1; i < par.Arity(); i++ {
		ret = math.Min(ret, par.Arg(i))
	}
	return ret
}

func evalMax(par *CallParams) float64 {
	ret := par.Arg(0)
	for i := 1; i < par.Arity(); i++ {
		ret = math.Max(ret, par.Arg(i))
	}
	return ret
}

func evalAnd(par *CallParams) float64 {
	for i := 0; i < par.Arity(); i++ {
		if par.Arg(i) == 0 {
			return 0
		}
	}
	return 1
}

func evalOr(par *CallParams) float64 {
	for i := 0; i < par.Arity(); i++ {
		if par.Arg(i) != 0 {
			return 1
		}
	}
	return 0
}

func evalWhere(par *CallParams) float64 {
	if par.Arg(0) != 0 {
		return par.Arg(1)
	}
	return par.Arg(2)
}
