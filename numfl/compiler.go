package numfl

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DefaultFunctionName is the name given to formulas compiled with CompileFormula
const DefaultFunctionName = "fn"

type parsedFormula struct {
	sym    string
	params []*parsedFormula
}

// ParseFunctions parses many function definitions of the form
//
//	def name(p1, p2, ...) = body
//
// A body may continue on the following lines. '//' starts a comment
func ParseFunctions(s string) ([]*FunParsed, error) {
	lines := splitLinesStripComments(s)
	return parseDefs(lines)
}

func splitLinesStripComments(s string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "//")
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

func parseDefs(lines []string) ([]*FunParsed, error) {
	ret := make([]*FunParsed, 0)
	var current *FunParsed
	for lineno, line := range lines {
		if strings.HasPrefix(line, "def ") {
			if current != nil {
				current.SourceCode = stripSpaces(current.SourceCode)
				ret = append(ret, current)
			}
			signature, body, foundEq := strings.Cut(strings.TrimPrefix(line, "def "), "=")
			if !foundEq {
				return nil, fmt.Errorf("'=' expectected @ line %d", lineno)
			}
			sym, params, err := parseSignature(stripSpaces(signature), lineno)
			if err != nil {
				return nil, err
			}
			current = &FunParsed{
				Sym:        sym,
				Params:     params,
				SourceCode: body,
			}
		} else {
			if len(stripSpaces(line)) == 0 {
				continue
			}
			if current == nil {
				return nil, fmt.Errorf("unexpectected symbols @ line %d", lineno)
			}
			current.SourceCode += line
		}
	}
	if current != nil {
		current.SourceCode = stripSpaces(current.SourceCode)
		ret = append(ret, current)
	}
	return ret, nil
}

func stripSpaces(str string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, str)
}

func parseSignature(s string, lineno int) (string, []string, error) {
	name, rest, found := strings.Cut(s, "(")
	if !found {
		return "", nil, fmt.Errorf("parameter list expected @ line %d", lineno)
	}
	paramStr, rest, found := strings.Cut(rest, ")")
	if !found || len(rest) != 0 {
		return "", nil, fmt.Errorf("closing ')' expected @ line %d", lineno)
	}
	if !IsIdentifier(name) {
		return "", nil, fmt.Errorf("wrong function name '%s' @ line %d", name, lineno)
	}
	params := make([]string, 0)
	if len(paramStr) == 0 {
		return name, params, nil
	}
	seen := make(map[string]struct{})
	for _, p := range strings.Split(paramStr, ",") {
		if !IsIdentifier(p) {
			return "", nil, fmt.Errorf("wrong parameter name '%s' @ line %d", p, lineno)
		}
		if _, dup := seen[p]; dup {
			return "", nil, fmt.Errorf("repeating parameter name '%s' @ line %d", p, lineno)
		}
		seen[p] = struct{}{}
		params = append(params, p)
	}
	return name, params, nil
}

func parseFormula(s string) (*parsedFormula, error) {
	name, rest, foundOpen := strings.Cut(s, "(")
	f := &parsedFormula{
		sym:    name,
		params: make([]*parsedFormula, 0),
	}
	if len(name) == 0 {
		return nil, fmt.Errorf("empty symbol: '%s'", s)
	}
	if !foundOpen {
		if strings.Contains(name, ")") || strings.Contains(name, ",") {
			return nil, fmt.Errorf("unexpected ')': '%s'", s)
		}
		return f, nil
	}
	spl, err := splitArgs(rest)
	if err != nil {
		return nil, err
	}
	for _, call := range spl {
		ff, err := parseFormula(call)
		if err != nil {
			return nil, err
		}
		f.params = append(f.params, ff)
	}
	return f, nil
}

// splitArgs expects ','-delimited list of calls, which ends with ')'
func splitArgs(argsStr string) ([]string, error) {
	ret := make([]string, 0)
	var buf bytes.Buffer
	level := 0
	for i, c := range []byte(argsStr) {
		if level < 0 {
			return nil, fmt.Errorf("unbalanced paranthesis: '%s'", argsStr)
		}
		switch c {
		case ',':
			if level == 0 {
				if buf.Len() == 0 {
					return nil, fmt.Errorf("empty argument: '%s'", argsStr)
				}
				ret = append(ret, buf.String())
				buf.Reset()
			} else {
				buf.WriteByte(c)
			}
		case '(':
			buf.WriteByte(c)
			level++
		case ')':
			level--
			if level >= 0 {
				buf.WriteByte(c)
			} else if i != len(argsStr)-1 {
				return nil, fmt.Errorf("unexpected symbols after ')': '%s'", argsStr)
			}
		default:
			buf.WriteByte(c)
		}
	}
	if level != -1 {
		return nil, fmt.Errorf("unclosed '(': '%s'", argsStr)
	}
	if buf.Len() > 0 {
		ret = append(ret, buf.String())
	} else if len(ret) > 0 {
		return nil, fmt.Errorf("empty argument: '%s'", argsStr)
	}
	return ret, nil
}

func isLiteral(sym string) bool {
	c := sym[0]
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}

func (f *parsedFormula) compile(lib *Library, params map[string]int) (*Expression, error) {
	if len(f.params) == 0 && isLiteral(f.sym) {
		v, err := strconv.ParseFloat(f.sym, 64)
		if err != nil {
			return nil, fmt.Errorf("wrong numeric literal '%s'", f.sym)
		}
		return &Expression{
			EvalFunc: func(_ *CallParams) float64 { return v },
			sym:      f.sym,
		}, nil
	}
	if idx, isParam := params[f.sym]; isParam {
		if len(f.params) != 0 {
			return nil, fmt.Errorf("parameter '%s' can't be called", f.sym)
		}
		return &Expression{
			EvalFunc: func(par *CallParams) float64 { return par.ctx.args[idx] },
			sym:      f.sym,
		}, nil
	}
	fd, err := lib.resolve(f.sym, len(f.params))
	if err != nil {
		return nil, err
	}
	ret := &Expression{
		Args:     make([]*Expression, 0, len(f.params)),
		EvalFunc: fd.evalFun,
		sym:      f.sym,
	}
	for _, ff := range f.params {
		arg, err := ff.compile(lib, params)
		if err != nil {
			return nil, err
		}
		ret.Args = append(ret.Args, arg)
	}
	return ret, nil
}

// CompileFunction compiles one parsed definition against the library. Parameter
// names must not shadow names visible in the library
func CompileFunction(lib *Library, fp *FunParsed) (*Function, error) {
	params := make(map[string]int, len(fp.Params))
	for i, p := range fp.Params {
		if lib.Exists(p) {
			return nil, fmt.Errorf("parameter '%s' of '%s' shadows a library function", p, fp.Sym)
		}
		params[p] = i
	}
	f, err := parseFormula(fp.SourceCode)
	if err != nil {
		return nil, fmt.Errorf("'%s': %v", fp.Sym, err)
	}
	body, err := f.compile(lib, params)
	if err != nil {
		return nil, fmt.Errorf("'%s': %v", fp.Sym, err)
	}
	return &Function{
		Name:   fp.Sym,
		Params: fp.Params,
		Source: fmt.Sprintf("def %s(%s) = %s", fp.Sym, strings.Join(fp.Params, ", "), fp.SourceCode),
		body:   body,
	}, nil
}

// Compile compiles the source of exactly one function definition
func Compile(lib *Library, source string) (*Function, error) {
	parsed, err := ParseFunctions(source)
	if err != nil {
		return nil, err
	}
	if len(parsed) != 1 {
		return nil, fmt.Errorf("exactly one function definition expected, got %d", len(parsed))
	}
	return CompileFunction(lib, parsed[0])
}

// CompileFormula compiles a bare formula body with the given parameter names
func CompileFormula(lib *Library, params []string, formulaSource string) (*Function, error) {
	return Compile(lib, fmt.Sprintf("def %s(%s) = %s", DefaultFunctionName, strings.Join(params, ","), formulaSource))
}
