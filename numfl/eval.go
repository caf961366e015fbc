package numfl

import "fmt"

// RunContext holds the positional arguments of one function invocation
type RunContext struct {
	args []float64
}

type CallParams struct {
	ctx  *RunContext
	args []*Expression
}

func (p *CallParams) Arity() int {
	return len(p.args)
}

// Arg evaluates n-th call argument
func (p *CallParams) Arg(n int) float64 {
	return p.ctx.Eval(p.args[n])
}

func (p *CallParams) evalAll() []float64 {
	ret := make([]float64, len(p.args))
	for i := range ret {
		ret[i] = p.Arg(i)
	}
	return ret
}

func (ctx *RunContext) Eval(f *Expression) float64 {
	return f.EvalFunc(&CallParams{ctx: ctx, args: f.Args})
}

// Call evaluates the function. The number of args must be equal to NumParams
func (f *Function) Call(args []float64) float64 {
	if len(args) != len(f.Params) {
		panic(fmt.Errorf("'%s' requires %d arguments, got %d", f.Name, len(f.Params), len(args)))
	}
	ctx := &RunContext{args: args}
	return ctx.Eval(f.body)
}

// Eval is Call with the arity mismatch reported as an error
func (f *Function) Eval(args ...float64) (float64, error) {
	if len(args) != len(f.Params) {
		return 0, fmt.Errorf("'%s' requires %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	return f.Call(args), nil
}
