package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	x, a := S("x"), S("a")
	t.Run("1", func(t *testing.T) {
		res := Parse("a*x^2 + 1", x, a)
		require.EqualValues(t, ParseOk, res.Status)
		require.True(t, res.Expr.Equal(AddOf(MulOf(a, PowOf(x, N(2))), N(1))))
	})
	t.Run("2", func(t *testing.T) {
		res := Parse("-x ** 2 - 3/a", x, a)
		require.EqualValues(t, ParseOk, res.Status)
		require.EqualValues(t, "-x^2 - 3*a^(-1)", res.Expr.String())
	})
	t.Run("3", func(t *testing.T) {
		res := Parse("sin(x, 1.5e-3) + f()", x)
		require.EqualValues(t, ParseOk, res.Status)
		require.EqualValues(t, "sin(x, 0.0015) + f()", res.Expr.String())
	})
	t.Run("new names", func(t *testing.T) {
		tab := NewSymbolTable(x)
		res := ParseWithTable("x*k + k", tab)
		require.EqualValues(t, ParseOk, res.Status)
		created := tab.Created()
		require.EqualValues(t, 1, len(created))
		require.EqualValues(t, "k", created[0].Name())
		require.EqualValues(t, 2, len(FreeSymbols(res.Expr)))
	})
	t.Run("ambiguous", func(t *testing.T) {
		x2 := S("x")
		res := Parse("x + 1", x, x2)
		require.EqualValues(t, ParseAmbiguous, res.Status)
		require.EqualValues(t, "x", res.Name)
		require.EqualValues(t, 2, len(res.Candidates))
	})
	t.Run("failed", func(t *testing.T) {
		for _, src := range []string{"x +", "(x", "x $ 2", "sin(x", "2 3"} {
			res := Parse(src, x)
			require.EqualValues(t, ParseFailed, res.Status, src)
			require.Error(t, res.Err, src)
		}
	})
}
