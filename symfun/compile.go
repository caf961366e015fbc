// Package symfun turns symbolic expressions into numeric functions and binds
// their parameters.
//
// Compile produces a CompiledFunction: a callable with a stable CallSignature.
// Every input symbol gets a generated name which is a legal identifier and
// never collides with another input or with a function of the numeric library.
// A BoundFunction fixes some of the parameters, either to constants (Frozen) or
// to whatever a ParameterContext holds at call time (Dynamic). The rest (Free)
// are passed positionally.
//
// CompiledFunction and BoundFunction are immutable, every rebinding returns
// a new BoundFunction.
package symfun

import (
	"fmt"
	"strings"

	"github.com/lunfardo314/easysym/expr"
	"github.com/lunfardo314/easysym/ident"
	"github.com/lunfardo314/easysym/numfl"
	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/zap"
)

type compileOptions struct {
	lib     *numfl.Library
	sources []string
	log     *zap.SugaredLogger
}

type CompileOption func(opts *compileOptions)

// WithLibrary compiles against lib instead of the builtin library. The library
// is frozen by the compilation
func WithLibrary(lib *numfl.Library) CompileOption {
	return func(opts *compileOptions) {
		opts.lib = lib
	}
}

// WithFunctionSource adds functions defined in numfl source to the namespace of
// the compiled function
func WithFunctionSource(source string) CompileOption {
	return func(opts *compileOptions) {
		opts.sources = append(opts.sources, source)
	}
}

func WithLogger(log *zap.SugaredLogger) CompileOption {
	return func(opts *compileOptions) {
		opts.log = log
	}
}

func makeCompileOptions(opts []CompileOption) *compileOptions {
	ret := &compileOptions{}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.lib == nil {
		ret.lib = numfl.Builtin()
	}
	if ret.log == nil {
		ret.log = zap.NewNop().Sugar()
	}
	return ret
}

// CompiledFunction is a numeric function compiled from an expression
type CompiledFunction struct {
	fun    *numfl.Function
	expr   expr.Expr
	sig    *CallSignature
	source string
}

// Compile compiles e into a function of symbols, in that order. With nil
// symbols the free symbols of e are used, ordered by name
func Compile(e expr.Expr, symbols []*expr.Symbol, opts ...CompileOption) (*CompiledFunction, error) {
	options := makeCompileOptions(opts)
	if e == nil {
		return nil, &CompilationError{Reason: "nil expression"}
	}
	if symbols == nil {
		symbols = expr.FreeSymbols(e)
	}
	if err := checkSymbols(symbols); err != nil {
		return nil, err
	}
	lib, err := namespace(options)
	if err != nil {
		return nil, err
	}

	reserved := ident.NewSet(lib.Names()...)
	reserved.Add(numfl.DefaultFunctionName)
	displayNames := make([]string, len(symbols))
	for i, s := range symbols {
		displayNames[i] = s.Name()
	}
	names := ident.AllocateAll(displayNames, reserved)

	// each input is replaced with a placeholder printing as its generated name,
	// so the body refers exactly to the declared parameters
	subs := make(map[*expr.Symbol]expr.Expr, len(symbols))
	placeholders := make(map[*expr.Symbol]struct{}, len(symbols))
	for i, s := range symbols {
		ph := expr.S(names[i])
		subs[s] = ph
		placeholders[ph] = struct{}{}
	}
	body, err := formulaSource(expr.Subs(e, subs), lib, placeholders)
	if err != nil {
		return nil, err
	}
	source := fmt.Sprintf("def %s(%s) = %s", numfl.DefaultFunctionName, strings.Join(names, ", "), body)
	fun, err := numfl.Compile(lib, source)
	if err != nil {
		return nil, &CompilationError{Subexpression: e.String(), Err: err}
	}
	ret := &CompiledFunction{
		fun:    fun,
		expr:   e,
		sig:    newCallSignature(symbols, names),
		source: source,
	}
	options.log.Debugf("compiled %s%s: %s", numfl.DefaultFunctionName, ret.sig.String(), source)
	return ret, nil
}

func checkSymbols(symbols []*expr.Symbol) error {
	seen := make(map[*expr.Symbol]struct{}, len(symbols))
	for i, s := range symbols {
		if s == nil {
			return &ValidationError{Reason: fmt.Sprintf("input symbol #%d is nil", i)}
		}
		if _, dup := seen[s]; dup {
			return &ValidationError{Symbol: s.Name(), Reason: "repeated in the list of inputs"}
		}
		seen[s] = struct{}{}
	}
	return nil
}

func namespace(opts *compileOptions) (*numfl.Library, error) {
	opts.lib.Freeze()
	if len(opts.sources) == 0 {
		return opts.lib, nil
	}
	ret := opts.lib.NewLayer()
	for _, src := range opts.sources {
		if err := ret.ExtendSource(src); err != nil {
			return nil, &CompilationError{Reason: "custom function source", Err: err}
		}
	}
	ret.Freeze()
	return ret, nil
}

func (f *CompiledFunction) Expr() expr.Expr {
	return f.expr
}

func (f *CompiledFunction) Signature() *CallSignature {
	return f.sig
}

// Source is the generated formula source
func (f *CompiledFunction) Source() string {
	return f.source
}

func (f *CompiledFunction) NumParams() int {
	return f.sig.Len()
}

func (f *CompiledFunction) String() string {
	return fmt.Sprintf("%s%s = %s", numfl.DefaultFunctionName, f.sig.String(), f.expr.String())
}

// Call evaluates the function with all parameters passed positionally
func (f *CompiledFunction) Call(args ...float64) (float64, error) {
	if len(args) < f.sig.Len() {
		return 0, &ArityError{Unfilled: f.sig.Names()[len(args):], Expected: f.sig.Len(), Got: len(args)}
	}
	if len(args) > f.sig.Len() {
		return 0, &ArityError{Surplus: len(args) - f.sig.Len(), Expected: f.sig.Len(), Got: len(args)}
	}
	return f.invoke(args)
}

func (f *CompiledFunction) invoke(args []float64) (float64, error) {
	var ret float64
	err := common.CatchPanicOrError(func() error {
		ret = f.fun.Call(args)
		return nil
	})
	if err != nil {
		return 0, &EvaluationError{Err: err}
	}
	return ret, nil
}

// Bind returns the function with all parameters free
func (f *CompiledFunction) Bind() *BoundFunction {
	return &BoundFunction{
		fun:    f,
		states: map[*expr.Symbol]BindingState{},
	}
}

func (f *CompiledFunction) Freeze(bindings ...Binding) (*BoundFunction, error) {
	return f.Bind().Freeze(bindings...)
}

func (f *CompiledFunction) Unfreeze(keys ...any) (*BoundFunction, error) {
	return f.Bind().Unfreeze(keys...)
}

func (f *CompiledFunction) SetParameterContext(ctx ParameterContext) *BoundFunction {
	return f.Bind().SetParameterContext(ctx)
}

func (f *CompiledFunction) ClearParameterContext() *BoundFunction {
	return f.Bind()
}
