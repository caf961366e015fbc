package expr

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ToJSON encodes the tree as nested objects tagged with "type"
func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(toJSON(e))
	return string(b), err
}

func toJSON(e Expr) map[string]interface{} {
	switch v := e.(type) {
	case *Num:
		return map[string]interface{}{"type": "num", "value": v.String()}
	case *Symbol:
		return map[string]interface{}{"type": "sym", "name": v.name}
	case *Add:
		return map[string]interface{}{"type": "add", "terms": toJSONAll(v.terms)}
	case *Mul:
		return map[string]interface{}{"type": "mul", "factors": toJSONAll(v.factors)}
	case *Pow:
		return map[string]interface{}{"type": "pow", "base": toJSON(v.base), "exp": toJSON(v.exp)}
	case *Func:
		return map[string]interface{}{"type": "func", "name": v.name, "args": toJSONAll(v.args)}
	}
	panic(fmt.Sprintf("toJSON: unsupported node %T", e))
}

func toJSONAll(lst []Expr) []interface{} {
	ret := make([]interface{}, len(lst))
	for i, e := range lst {
		ret[i] = toJSON(e)
	}
	return ret
}

// FromJSON decodes a tree produced by ToJSON, or the same shape decoded from
// YAML. Symbol names are resolved through tab
func FromJSON(data map[string]interface{}, tab *SymbolTable) ParseResult {
	e, err := fromJSON(data, tab)
	if err != nil {
		if amb, ok := err.(*ambiguousName); ok {
			return ParseResult{Status: ParseAmbiguous, Name: amb.name, Candidates: amb.candidates, Err: amb}
		}
		return ParseResult{Status: ParseFailed, Err: err}
	}
	return parseOk(e)
}

func fromJSON(data map[string]interface{}, tab *SymbolTable) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typ, ok := data["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subExpr := func(field string) (Expr, error) {
		m, ok := asObject(data[field])
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		return fromJSON(m, tab)
	}

	subExprArray := func(field string) ([]Expr, error) {
		raw, ok := data[field].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		ret := make([]Expr, len(raw))
		for i, it := range raw {
			m, ok := asObject(it)
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			e, err := fromJSON(m, tab)
			if err != nil {
				return nil, err
			}
			ret[i] = e
		}
		return ret, nil
	}

	subString := func(field string) (string, error) {
		s, ok := data[field].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	switch typ {
	case "num":
		switch v := data["value"].(type) {
		case float64:
			return N(v), nil
		case int:
			return Int(int64(v)), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid num value: %s", v)
			}
			return N(f), nil
		}
		return nil, fmt.Errorf("num: 'value' must be a number or a numeric string")
	case "sym":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		s, amb := tab.resolve(name)
		if amb != nil {
			return nil, amb
		}
		return s, nil
	case "add":
		terms, err := subExprArray("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil
	case "mul":
		factors, err := subExprArray("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil
	case "pow":
		base, err := subExpr("base")
		if err != nil {
			return nil, err
		}
		exp, err := subExpr("exp")
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	case "func":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		args, err := subExprArray("args")
		if err != nil {
			return nil, err
		}
		return Call(name, args...), nil
	}
	return nil, fmt.Errorf("unknown expression type '%s'", typ)
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		ret := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			ret[ks] = val
		}
		return ret, true
	}
	return nil, false
}
