package expr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbol(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		x1 := S("x")
		x2 := S("x")
		require.True(t, x1.Equal(x1))
		require.False(t, x1.Equal(x2))
		require.NotEqual(t, x1.ID(), x2.ID())
		require.EqualValues(t, "x", x2.Name())
	})
	t.Run("subs", func(t *testing.T) {
		x, y := S("x"), S("y")
		e := AddOf(PowOf(x, Int(2)), y)
		r := e.Subs(map[*Symbol]Expr{x: Int(3)})
		require.EqualValues(t, "3^2 + y", r.String())
		// original untouched
		require.EqualValues(t, "x^2 + y", e.String())
	})
	t.Run("subs shares unchanged subtrees", func(t *testing.T) {
		x, y := S("x"), S("y")
		sinY := SinOf(y)
		sq := PowOf(x, Int(2))
		e := AddOf(sq, sinY)
		require.Same(t, e, e.Subs(map[*Symbol]Expr{S("z"): Int(1)}))

		r := e.Subs(map[*Symbol]Expr{x: Int(3)})
		require.NotSame(t, e, r)
		terms := r.(*Add).Terms()
		require.EqualValues(t, 2, len(terms))
		require.Same(t, sinY, terms[1])
		require.NotSame(t, sq, terms[0])
	})
}

func TestString(t *testing.T) {
	x, a := S("x"), S("a")
	t.Run("1", func(t *testing.T) {
		require.EqualValues(t, "a*x^2 + 1", AddOf(MulOf(a, PowOf(x, Int(2))), Int(1)).String())
	})
	t.Run("2", func(t *testing.T) {
		require.EqualValues(t, "x - a", SubOf(x, a).String())
	})
	t.Run("3", func(t *testing.T) {
		require.EqualValues(t, "sin(x + a)", SinOf(AddOf(x, a)).String())
	})
	t.Run("4", func(t *testing.T) {
		require.EqualValues(t, "(x + a)^(-1)", PowOf(AddOf(x, a), Int(-1)).String())
	})
	t.Run("5", func(t *testing.T) {
		require.EqualValues(t, "where(lt(x, 0), -x, x)", Where(Lt(x, Int(0)), Neg(x), x).String())
	})
}

func TestKey(t *testing.T) {
	x, a := S("x"), S("a")
	t.Run("same structure", func(t *testing.T) {
		e1 := AddOf(MulOf(a, x), Int(1))
		e2 := AddOf(MulOf(a, x), Int(1))
		require.True(t, bytes.Equal(Key(e1), Key(e2)))
		require.True(t, e1.Equal(e2))
	})
	t.Run("same name other symbol", func(t *testing.T) {
		x2 := S("x")
		require.False(t, bytes.Equal(Key(AddOf(x, Int(1))), Key(AddOf(x2, Int(1)))))
	})
	t.Run("different constants", func(t *testing.T) {
		require.False(t, bytes.Equal(Key(MulOf(N(2), x)), Key(MulOf(N(2.5), x))))
	})
}

func TestFreeSymbols(t *testing.T) {
	b, a := S("b"), S("a")
	a2 := S("a")
	e := AddOf(MulOf(b, a2), SinOf(a), b)
	got := FreeSymbols(e)
	require.EqualValues(t, 3, len(got))
	require.True(t, got[0] == a)
	require.True(t, got[1] == a2)
	require.True(t, got[2] == b)
	require.EqualValues(t, 0, len(FreeSymbols(Int(3))))
}

func TestJSON(t *testing.T) {
	x, a := S("x"), S("a")
	e := AddOf(MulOf(a, PowOf(x, Int(2))), CosOf(x))
	s, err := ToJSON(e)
	require.NoError(t, err)
	require.Contains(t, s, `"type":"add"`)

	t.Run("from yaml-like map", func(t *testing.T) {
		data := map[string]interface{}{
			"type": "mul",
			"factors": []interface{}{
				map[string]interface{}{"type": "num", "value": 2},
				map[interface{}]interface{}{"type": "sym", "name": "x"},
			},
		}
		res := FromJSON(data, NewSymbolTable(x))
		require.EqualValues(t, ParseOk, res.Status)
		require.True(t, res.Expr.Equal(MulOf(Int(2), x)))
	})
	t.Run("unknown type", func(t *testing.T) {
		res := FromJSON(map[string]interface{}{"type": "integral"}, NewSymbolTable())
		require.EqualValues(t, ParseFailed, res.Status)
		require.Error(t, res.Err)
	})
}
