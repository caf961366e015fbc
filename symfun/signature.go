package symfun

import (
	"fmt"
	"strings"

	"github.com/lunfardo314/easysym/expr"
)

// Param is one input of a compiled function: the original symbol and the name
// it has in the generated code
type Param struct {
	Symbol *expr.Symbol
	Name   string
}

// CallSignature is the ordered parameter list of a compiled function.
// It is immutable
type CallSignature struct {
	params   []Param
	byName   map[string]int
	bySymbol map[*expr.Symbol]int
}

func newCallSignature(symbols []*expr.Symbol, names []string) *CallSignature {
	ret := &CallSignature{
		params:   make([]Param, len(symbols)),
		byName:   make(map[string]int, len(symbols)),
		bySymbol: make(map[*expr.Symbol]int, len(symbols)),
	}
	for i, s := range symbols {
		ret.params[i] = Param{Symbol: s, Name: names[i]}
		ret.byName[names[i]] = i
		ret.bySymbol[s] = i
	}
	return ret
}

func (s *CallSignature) Len() int {
	return len(s.params)
}

func (s *CallSignature) Param(i int) Param {
	return s.params[i]
}

func (s *CallSignature) Params() []Param {
	ret := make([]Param, len(s.params))
	copy(ret, s.params)
	return ret
}

// Names returns generated names in signature order
func (s *CallSignature) Names() []string {
	ret := make([]string, len(s.params))
	for i, p := range s.params {
		ret[i] = p.Name
	}
	return ret
}

func (s *CallSignature) Symbols() []*expr.Symbol {
	ret := make([]*expr.Symbol, len(s.params))
	for i, p := range s.params {
		ret[i] = p.Symbol
	}
	return ret
}

func (s *CallSignature) IndexOf(sym *expr.Symbol) (int, bool) {
	i, ok := s.bySymbol[sym]
	return i, ok
}

func (s *CallSignature) String() string {
	parts := make([]string, len(s.params))
	for i, p := range s.params {
		if p.Name == p.Symbol.Name() {
			parts[i] = p.Name
		} else {
			parts[i] = fmt.Sprintf("%s:%s", p.Symbol.Name(), p.Name)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// resolveKey finds the parameter addressed by a symbol, a generated name or a
// display name. Generated names take precedence over display names
func (s *CallSignature) resolveKey(key any) (int, error) {
	switch k := key.(type) {
	case *expr.Symbol:
		if i, ok := s.bySymbol[k]; ok {
			return i, nil
		}
	case string:
		if i, ok := s.byName[k]; ok {
			return i, nil
		}
		candidates := make([]int, 0)
		for i, p := range s.params {
			if p.Symbol.Name() == k {
				candidates = append(candidates, i)
			}
		}
		switch len(candidates) {
		case 0:
		case 1:
			return candidates[0], nil
		default:
			names := make([]string, len(candidates))
			for j, i := range candidates {
				names[j] = s.params[i].Name
			}
			return -1, &UnknownParameterError{Key: k, Valid: s.Names(), Candidates: names}
		}
	}
	return -1, &UnknownParameterError{Key: keyString(key), Valid: s.Names()}
}

func keyString(key any) string {
	switch k := key.(type) {
	case *expr.Symbol:
		if k == nil {
			return "<nil symbol>"
		}
		return k.GoString()
	case string:
		return k
	}
	return fmt.Sprintf("%v", key)
}
