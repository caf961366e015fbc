package numfl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const defs1 = `
// comment
def hyp(a, b) = sqrt(add(mul(a, a),
        mul(b, b)))
def twice(x) = mul(2, x) // trailing
`

func TestParse(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		ret, err := ParseFunctions(defs1)
		require.NoError(t, err)
		require.EqualValues(t, 2, len(ret))
		require.EqualValues(t, "hyp", ret[0].Sym)
		require.EqualValues(t, []string{"a", "b"}, ret[0].Params)
		require.EqualValues(t, "sqrt(add(mul(a,a),mul(b,b)))", ret[0].SourceCode)
		require.EqualValues(t, "mul(2,x)", ret[1].SourceCode)
	})
	t.Run("2", func(t *testing.T) {
		_, err := ParseFunctions("def f(x, x) = x")
		require.Error(t, err)
		_, err = ParseFunctions("def f(x) x")
		require.Error(t, err)
		_, err = ParseFunctions("def f(1x) = x")
		require.Error(t, err)
		_, err = ParseFunctions("x")
		require.Error(t, err)
	})
	t.Run("3", func(t *testing.T) {
		for _, src := range []string{"add(x,", "add(x))", "add(x,,y)", "add(x)y", ""} {
			_, err := parseFormula(stripSpaces(src))
			require.Error(t, err, src)
		}
	})
}

func TestCompile(t *testing.T) {
	lib := Builtin()
	t.Run("1", func(t *testing.T) {
		f, err := Compile(lib, "def f(x, a) = add(mul(a, pow(x, 2)), 1)")
		require.NoError(t, err)
		require.EqualValues(t, 2, f.NumParams())
		ret, err := f.Eval(2, 3)
		require.NoError(t, err)
		require.EqualValues(t, 13, ret)
		_, err = f.Eval(2)
		require.Error(t, err)
	})
	t.Run("2", func(t *testing.T) {
		f, err := CompileFormula(lib, nil, "mul(pi, -2.5e-1)")
		require.NoError(t, err)
		require.EqualValues(t, DefaultFunctionName, f.Name)
		ret, err := f.Eval()
		require.NoError(t, err)
		require.InDelta(t, -math.Pi/4, ret, 1e-15)
	})
	t.Run("undefined symbol", func(t *testing.T) {
		_, err := Compile(lib, "def f(x) = add(x, y)")
		require.Error(t, err)
		require.Contains(t, err.Error(), "'y'")
	})
	t.Run("wrong arity", func(t *testing.T) {
		_, err := Compile(lib, "def f(x) = sin(x, x)")
		require.Error(t, err)
		_, err = Compile(lib, "def f(x) = min()")
		require.Error(t, err)
	})
	t.Run("shadowing", func(t *testing.T) {
		_, err := Compile(lib, "def f(sin) = sin")
		require.Error(t, err)
	})
	t.Run("param call", func(t *testing.T) {
		_, err := Compile(lib, "def f(x) = x(1)")
		require.Error(t, err)
	})
	t.Run("many defs", func(t *testing.T) {
		_, err := Compile(lib, defs1)
		require.Error(t, err)
	})
}

func TestLibrary(t *testing.T) {
	t.Run("builtin frozen", func(t *testing.T) {
		require.Error(t, Builtin().Extend(CustomFunction{Name: "f", Fun: func(...float64) float64 { return 0 }}))
		require.Error(t, Builtin().ExtendSource("def f(x) = x"))
	})
	t.Run("extended builtins", func(t *testing.T) {
		f, err := CompileFormula(Builtin(), []string{"x"}, "add(sinc(x), le(x, 1), ne(x, x))")
		require.NoError(t, err)
		ret, err := f.Eval(0)
		require.NoError(t, err)
		require.EqualValues(t, 2, ret)
	})
	t.Run("lazy where", func(t *testing.T) {
		called := 0
		lib, err := NewLibrary(CustomFunction{Name: "probe", NumParams: 0, Fun: func(...float64) float64 {
			called++
			return 7
		}})
		require.NoError(t, err)
		f, err := CompileFormula(lib, []string{"c"}, "where(c, 1, probe)")
		require.NoError(t, err)
		ret, err := f.Eval(1)
		require.NoError(t, err)
		require.EqualValues(t, 1, ret)
		require.EqualValues(t, 0, called)
		ret, err = f.Eval(0)
		require.NoError(t, err)
		require.EqualValues(t, 7, ret)
		require.EqualValues(t, 1, called)
	})
	t.Run("custom", func(t *testing.T) {
		lib, err := NewLibrary(CustomFunction{Name: "sumsq", NumParams: -1, Fun: func(args ...float64) float64 {
			ret := 0.0
			for _, a := range args {
				ret += a * a
			}
			return ret
		}})
		require.NoError(t, err)
		require.NoError(t, lib.ExtendSource("def norm3(a, b, c) = sqrt(sumsq(a, b, c))"))
		require.True(t, lib.Exists("norm3"))
		require.False(t, Builtin().Exists("norm3"))
		require.EqualValues(t, []string{"norm3", "sumsq"}, lib.CustomNames())

		f, err := CompileFormula(lib, []string{"x"}, "norm3(x, 4, 0)")
		require.NoError(t, err)
		ret, err := f.Eval(3)
		require.NoError(t, err)
		require.EqualValues(t, 5, ret)

		n, ok := lib.Arity("sumsq")
		require.True(t, ok)
		require.EqualValues(t, -1, n)

		n, ok = lib.MinArity("min")
		require.True(t, ok)
		require.EqualValues(t, 1, n)
		n, ok = lib.MinArity("norm3")
		require.True(t, ok)
		require.EqualValues(t, 3, n)
		_, ok = lib.MinArity("nosuch")
		require.False(t, ok)
	})
	t.Run("shadow builtin", func(t *testing.T) {
		lib, err := NewLibrary(CustomFunction{Name: "sin", NumParams: 1, Fun: func(args ...float64) float64 { return args[0] }})
		require.NoError(t, err)
		f, err := CompileFormula(lib, []string{"x"}, "sin(x)")
		require.NoError(t, err)
		ret, err := f.Eval(2)
		require.NoError(t, err)
		require.EqualValues(t, 2, ret)
	})
	t.Run("wrong custom", func(t *testing.T) {
		_, err := NewLibrary(CustomFunction{Name: "def", Fun: func(...float64) float64 { return 0 }})
		require.Error(t, err)
		_, err = NewLibrary(CustomFunction{Name: "f"})
		require.Error(t, err)
	})
}

func TestIdentifier(t *testing.T) {
	require.True(t, IsIdentifier("x"))
	require.True(t, IsIdentifier("_a1"))
	require.False(t, IsIdentifier("1a"))
	require.False(t, IsIdentifier("a-b"))
	require.False(t, IsIdentifier("θ"))
	require.False(t, IsIdentifier("def"))
	require.False(t, IsIdentifier(""))
	require.True(t, IsKeyword("def"))
}
