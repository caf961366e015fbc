package symfun

import (
	"math"
	"strconv"
	"strings"

	"github.com/lunfardo314/easysym/expr"
	"github.com/lunfardo314/easysym/numfl"
)

// formulaWriter serializes an expression into numfl formula source. Only the
// placeholder symbols may occur in the expression, any other symbol is an error
type formulaWriter struct {
	buf    strings.Builder
	lib    *numfl.Library
	params map[*expr.Symbol]struct{}
}

func formulaSource(e expr.Expr, lib *numfl.Library, params map[*expr.Symbol]struct{}) (string, error) {
	w := &formulaWriter{lib: lib, params: params}
	if err := w.write(e); err != nil {
		return "", err
	}
	return w.buf.String(), nil
}

func (w *formulaWriter) write(e expr.Expr) error {
	switch v := e.(type) {
	case *expr.Num:
		w.buf.WriteString(formatNum(v.Value()))
		return nil
	case *expr.Symbol:
		if _, ok := w.params[v]; !ok {
			return &CompilationError{
				Subexpression: v.Name(),
				Reason:        "symbol is not among the inputs of the function",
			}
		}
		w.buf.WriteString(v.Name())
		return nil
	case *expr.Add:
		return w.writeCall("add", v.Terms())
	case *expr.Mul:
		return w.writeCall("mul", v.Factors())
	case *expr.Pow:
		return w.writeCall("pow", []expr.Expr{v.Base(), v.Exponent()})
	case *expr.Func:
		arity, ok := w.lib.Arity(v.FuncName())
		if !ok || !numfl.IsIdentifier(v.FuncName()) {
			return &CompilationError{Subexpression: v.String(), Reason: "unknown function '" + v.FuncName() + "'"}
		}
		if arity >= 0 && arity != len(v.Args()) {
			return &CompilationError{
				Subexpression: v.String(),
				Reason:        "function '" + v.FuncName() + "' takes " + strconv.Itoa(arity) + " argument(s)",
			}
		}
		if minArity, _ := w.lib.MinArity(v.FuncName()); arity < 0 && len(v.Args()) < minArity {
			return &CompilationError{
				Subexpression: v.String(),
				Reason:        "function '" + v.FuncName() + "' takes at least " + strconv.Itoa(minArity) + " argument(s)",
			}
		}
		return w.writeCall(v.FuncName(), v.Args())
	case nil:
		return &CompilationError{Reason: "nil expression"}
	}
	return &CompilationError{Subexpression: e.String(), Reason: "unsupported expression node"}
}

func (w *formulaWriter) writeCall(name string, args []expr.Expr) error {
	w.buf.WriteString(name)
	w.buf.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		if err := w.write(a); err != nil {
			return err
		}
	}
	w.buf.WriteByte(')')
	return nil
}

func formatNum(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "neg(inf)"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
