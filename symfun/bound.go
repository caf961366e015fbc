package symfun

import (
	"fmt"
	"strings"

	"github.com/lunfardo314/easysym/expr"
)

// BoundFunction is a CompiledFunction with some parameters bound. It is never
// modified after construction
type BoundFunction struct {
	fun *CompiledFunction
	// states holds non-free parameters only
	states map[*expr.Symbol]BindingState
	ctx    ParameterContext
}

func (b *BoundFunction) clone() *BoundFunction {
	ret := &BoundFunction{
		fun:    b.fun,
		states: make(map[*expr.Symbol]BindingState, len(b.states)),
		ctx:    b.ctx,
	}
	for s, st := range b.states {
		ret.states[s] = st
	}
	return ret
}

// Freeze returns a new BoundFunction with bindings applied. The call fails as a
// whole if any key is unknown or if two bindings address the same parameter
func (b *BoundFunction) Freeze(bindings ...Binding) (*BoundFunction, error) {
	sig := b.fun.sig
	targeted := make(map[int]string, len(bindings))
	ret := b.clone()
	for _, bnd := range bindings {
		idx, err := sig.resolveKey(bnd.Key)
		if err != nil {
			return nil, err
		}
		if prev, dup := targeted[idx]; dup {
			return nil, &BindingConflictError{Param: sig.params[idx].Name, Keys: []string{prev, keyString(bnd.Key)}}
		}
		targeted[idx] = keyString(bnd.Key)

		sym := sig.params[idx].Symbol
		if bnd.State.IsFree() {
			delete(ret.states, sym)
		} else {
			ret.states[sym] = bnd.State
		}
	}
	return ret, nil
}

// Unfreeze makes parameters free again
func (b *BoundFunction) Unfreeze(keys ...any) (*BoundFunction, error) {
	bindings := make([]Binding, len(keys))
	for i, k := range keys {
		bindings[i] = SetFree(k)
	}
	return b.Freeze(bindings...)
}

func (b *BoundFunction) SetParameterContext(ctx ParameterContext) *BoundFunction {
	ret := b.clone()
	ret.ctx = ctx
	return ret
}

func (b *BoundFunction) ClearParameterContext() *BoundFunction {
	ret := b.clone()
	ret.ctx = nil
	return ret
}

func (b *BoundFunction) ParameterContext() ParameterContext {
	return b.ctx
}

// Unbind returns the compiled function without any bindings
func (b *BoundFunction) Unbind() *CompiledFunction {
	return b.fun
}

// State returns the binding state of the parameter addressed by key
func (b *BoundFunction) State(key any) (BindingState, error) {
	idx, err := b.fun.sig.resolveKey(key)
	if err != nil {
		return BindingState{}, err
	}
	return b.states[b.fun.sig.params[idx].Symbol], nil
}

// FreeParams returns the parameters which are passed positionally, in call order
func (b *BoundFunction) FreeParams() []Param {
	ret := make([]Param, 0, len(b.fun.sig.params))
	for _, p := range b.fun.sig.params {
		if b.states[p.Symbol].IsFree() {
			ret = append(ret, p)
		}
	}
	return ret
}

func (b *BoundFunction) String() string {
	parts := make([]string, len(b.fun.sig.params))
	for i, p := range b.fun.sig.params {
		st := b.states[p.Symbol]
		switch {
		case st.IsFree():
			parts[i] = p.Name
		default:
			parts[i] = p.Name + "=" + st.String()
		}
	}
	return fmt.Sprintf("%s(%s) = %s", b.fun.fun.Name, strings.Join(parts, ", "), b.fun.expr.String())
}

// Call evaluates the function. Frozen parameters take their values, dynamic
// ones are looked up in the parameter context and the free ones consume args
// in signature order. A dynamic parameter never takes a positional argument
func (b *BoundFunction) Call(args ...float64) (float64, error) {
	resolved, err := b.resolve(args)
	if err != nil {
		return 0, err
	}
	return b.fun.invoke(resolved)
}

func (b *BoundFunction) resolve(args []float64) ([]float64, error) {
	params := b.fun.sig.params
	ret := make([]float64, len(params))
	next := 0
	var unfilled []string
	for i, p := range params {
		st := b.states[p.Symbol]
		switch st.kind {
		case kindFrozen:
			ret[i] = st.value
		case kindDynamic:
			v, err := b.lookup(p)
			if err != nil {
				return nil, err
			}
			ret[i] = v
		default:
			if next < len(args) {
				ret[i] = args[next]
				next++
			} else {
				unfilled = append(unfilled, p.Name)
			}
		}
	}
	if len(unfilled) > 0 {
		return nil, &ArityError{Unfilled: unfilled, Expected: next + len(unfilled), Got: len(args)}
	}
	if next < len(args) {
		return nil, &ArityError{Surplus: len(args) - next, Expected: next, Got: len(args)}
	}
	return ret, nil
}

func (b *BoundFunction) lookup(p Param) (float64, error) {
	if b.ctx == nil {
		return 0, &NoParameterContextError{Param: p.Name}
	}
	v, ok := b.ctx.Value(p.Symbol)
	if !ok {
		return 0, &MissingContextValueError{Param: p.Name, Symbol: p.Symbol.Name(), Context: describe(b.ctx)}
	}
	return v, nil
}

// Map evaluates a function with exactly one free parameter at each of xs.
// Dynamic parameters are read once for the whole call
func (b *BoundFunction) Map(xs []float64) ([]float64, error) {
	free := b.FreeParams()
	if len(free) != 1 {
		return nil, &ArityError{Expected: len(free), Got: 1}
	}
	template, err := b.resolve([]float64{0})
	if err != nil {
		return nil, err
	}
	slot, _ := b.fun.sig.IndexOf(free[0].Symbol)
	ret := make([]float64, len(xs))
	for i, x := range xs {
		template[slot] = x
		if ret[i], err = b.fun.invoke(template); err != nil {
			return nil, err
		}
	}
	return ret, nil
}
