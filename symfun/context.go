package symfun

import (
	"sort"
	"strings"
	"sync"

	"github.com/lunfardo314/easysym/expr"
)

// ParameterContext provides current values of dynamic parameters. Lookup by
// symbol is the only operation the core uses: a context is never iterated or
// asked for membership separately, and it is never written to.
// Implementations owned by live controls may change between two lookups
type ParameterContext interface {
	Value(sym *expr.Symbol) (float64, bool)
}

// Describer is implemented by contexts which can describe their content for
// error messages
type Describer interface {
	Describe() string
}

func describe(ctx ParameterContext) string {
	if d, ok := ctx.(Describer); ok {
		return d.Describe()
	}
	return ""
}

// ContextFunc adapts a lookup function
type ContextFunc func(sym *expr.Symbol) (float64, bool)

func (f ContextFunc) Value(sym *expr.Symbol) (float64, bool) {
	return f(sym)
}

// SymbolMap is a context keyed by symbol identity
type SymbolMap map[*expr.Symbol]float64

func (m SymbolMap) Value(sym *expr.Symbol) (float64, bool) {
	v, ok := m[sym]
	return v, ok
}

func (m SymbolMap) Describe() string {
	names := make([]string, 0, len(m))
	for s := range m {
		names = append(names, s.Name())
	}
	return describeNames(names)
}

// NameMap is a context keyed by display name. All symbols with the same
// display name get the same value
type NameMap map[string]float64

func (m NameMap) Value(sym *expr.Symbol) (float64, bool) {
	v, ok := m[sym.Name()]
	return v, ok
}

func (m NameMap) Describe() string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	return describeNames(names)
}

func describeNames(names []string) string {
	if len(names) == 0 {
		return "empty"
	}
	sort.Strings(names)
	return "has values for " + strings.Join(names, ", ")
}

// LiveContext is a mutable context safe for concurrent use, e.g. updated by
// UI controls while functions are evaluated
type LiveContext struct {
	mutex  sync.RWMutex
	values map[*expr.Symbol]float64
}

func NewLiveContext() *LiveContext {
	return &LiveContext{
		values: make(map[*expr.Symbol]float64),
	}
}

func (c *LiveContext) Set(sym *expr.Symbol, v float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.values[sym] = v
}

func (c *LiveContext) Delete(sym *expr.Symbol) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.values, sym)
}

func (c *LiveContext) Value(sym *expr.Symbol) (float64, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	v, ok := c.values[sym]
	return v, ok
}

func (c *LiveContext) Describe() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.values))
	for s := range c.values {
		names = append(names, s.Name())
	}
	return describeNames(names)
}
