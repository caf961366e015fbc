package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type ParseStatus byte

const (
	ParseOk ParseStatus = iota
	// ParseAmbiguous means the text is well-formed but a name could denote
	// more than one known symbol
	ParseAmbiguous
	ParseFailed
)

func (s ParseStatus) String() string {
	switch s {
	case ParseOk:
		return "ok"
	case ParseAmbiguous:
		return "ambiguous"
	case ParseFailed:
		return "failed"
	}
	return fmt.Sprintf("ParseStatus(%d)", byte(s))
}

// ParseResult is the outcome of reading an expression from text or JSON.
// Exactly one of Expr (ParseOk), Candidates (ParseAmbiguous) or Err
// (ParseFailed) is meaningful
type ParseResult struct {
	Status     ParseStatus
	Expr       Expr
	Name       string
	Candidates []*Symbol
	Err        error
}

func parseOk(e Expr) ParseResult { return ParseResult{Status: ParseOk, Expr: e} }

func parseFailed(format string, args ...interface{}) ParseResult {
	return ParseResult{Status: ParseFailed, Err: fmt.Errorf(format, args...)}
}

// SymbolTable resolves names to symbols while reading expressions. Names of
// known symbols resolve to those symbols, other names get one fresh symbol
// per table
type SymbolTable struct {
	known   map[string][]*Symbol
	created map[string]*Symbol
	order   []*Symbol
}

func NewSymbolTable(known ...*Symbol) *SymbolTable {
	ret := &SymbolTable{
		known:   make(map[string][]*Symbol),
		created: make(map[string]*Symbol),
	}
	for _, s := range known {
		ret.known[s.name] = append(ret.known[s.name], s)
	}
	return ret
}

type ambiguousName struct {
	name       string
	candidates []*Symbol
}

func (a *ambiguousName) Error() string {
	return fmt.Sprintf("name '%s' matches %d symbols", a.name, len(a.candidates))
}

func (t *SymbolTable) resolve(name string) (*Symbol, *ambiguousName) {
	switch lst := t.known[name]; len(lst) {
	case 0:
	case 1:
		return lst[0], nil
	default:
		return nil, &ambiguousName{name: name, candidates: lst}
	}
	if s, ok := t.created[name]; ok {
		return s, nil
	}
	s := S(name)
	t.created[name] = s
	t.order = append(t.order, s)
	return s, nil
}

// Created returns symbols the table had to create, in order of first use
func (t *SymbolTable) Created() []*Symbol {
	return t.order
}

// Parse reads an infix expression: numbers, names, + - * / ^ (or **),
// unary minus, parentheses and function calls name(arg, ...)
func Parse(src string, known ...*Symbol) ParseResult {
	return ParseWithTable(src, NewSymbolTable(known...))
}

func ParseWithTable(src string, tab *SymbolTable) ParseResult {
	toks, err := tokenize(src)
	if err != nil {
		return ParseResult{Status: ParseFailed, Err: err}
	}
	p := &parser{toks: toks, tab: tab}
	e := p.parseSum()
	if p.amb != nil {
		return ParseResult{Status: ParseAmbiguous, Name: p.amb.name, Candidates: p.amb.candidates, Err: p.amb}
	}
	if p.err != nil {
		return ParseResult{Status: ParseFailed, Err: p.err}
	}
	if p.pos != len(p.toks) {
		return parseFailed("unexpected '%s' at offset %d", p.toks[p.pos].text, p.toks[p.pos].offset)
	}
	return parseOk(e)
}

type tokenKind byte

const (
	tokNum tokenKind = iota
	tokName
	tokOp
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

func tokenize(src string) ([]token, error) {
	ret := make([]token, 0)
	runes := []rune(src)
	for i := 0; i < len(runes); {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
				j := i + 1
				if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
					j++
				}
				if j < len(runes) && unicode.IsDigit(runes[j]) {
					i = j
					for i < len(runes) && unicode.IsDigit(runes[i]) {
						i++
					}
				}
			}
			ret = append(ret, token{kind: tokNum, text: string(runes[start:i]), offset: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			ret = append(ret, token{kind: tokName, text: string(runes[start:i]), offset: start})
		case c == '*' && i+1 < len(runes) && runes[i+1] == '*':
			ret = append(ret, token{kind: tokOp, text: "^", offset: i})
			i += 2
		case strings.ContainsRune("+-*/^(),", c):
			ret = append(ret, token{kind: tokOp, text: string(c), offset: i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character '%c' at offset %d", c, i)
		}
	}
	return ret, nil
}

type parser struct {
	toks []token
	pos  int
	tab  *SymbolTable
	err  error
	amb  *ambiguousName
}

func (p *parser) failed() bool { return p.err != nil || p.amb != nil }

func (p *parser) peekOp(ops string) (string, bool) {
	if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokOp {
		return "", false
	}
	t := p.toks[p.pos].text
	if !strings.Contains(ops, t) {
		return "", false
	}
	return t, true
}

func (p *parser) expectOp(op string) {
	if p.failed() {
		return
	}
	if _, ok := p.peekOp(op); !ok {
		if p.pos >= len(p.toks) {
			p.err = fmt.Errorf("expected '%s' at end of input", op)
		} else {
			p.err = fmt.Errorf("expected '%s' at offset %d", op, p.toks[p.pos].offset)
		}
		return
	}
	p.pos++
}

func (p *parser) parseSum() Expr {
	terms := []Expr{p.parseProduct()}
	for !p.failed() {
		op, ok := p.peekOp("+-")
		if !ok {
			break
		}
		p.pos++
		t := p.parseProduct()
		if op == "-" {
			t = Neg(t)
		}
		terms = append(terms, t)
	}
	return AddOf(terms...)
}

func (p *parser) parseProduct() Expr {
	factors := []Expr{p.parseUnary()}
	for !p.failed() {
		op, ok := p.peekOp("*/")
		if !ok {
			break
		}
		p.pos++
		f := p.parseUnary()
		if op == "/" {
			f = PowOf(f, Int(-1))
		}
		factors = append(factors, f)
	}
	return MulOf(factors...)
}

func (p *parser) parseUnary() Expr {
	if _, ok := p.peekOp("-"); ok {
		p.pos++
		return Neg(p.parseUnary())
	}
	if _, ok := p.peekOp("+"); ok {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() Expr {
	base := p.parsePrimary()
	if p.failed() {
		return base
	}
	if _, ok := p.peekOp("^"); ok {
		p.pos++
		return PowOf(base, p.parseUnary())
	}
	return base
}

func (p *parser) parsePrimary() Expr {
	if p.failed() {
		return nil
	}
	if p.pos >= len(p.toks) {
		p.err = fmt.Errorf("unexpected end of input")
		return nil
	}
	t := p.toks[p.pos]
	p.pos++
	switch t.kind {
	case tokNum:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			p.err = fmt.Errorf("bad number '%s' at offset %d", t.text, t.offset)
			return nil
		}
		return N(v)
	case tokName:
		if _, ok := p.peekOp("("); ok {
			p.pos++
			return Call(t.text, p.parseArgs()...)
		}
		s, amb := p.tab.resolve(t.text)
		if amb != nil {
			p.amb = amb
			return nil
		}
		return s
	}
	if t.text == "(" {
		e := p.parseSum()
		p.expectOp(")")
		return e
	}
	p.err = fmt.Errorf("unexpected '%s' at offset %d", t.text, t.offset)
	return nil
}

func (p *parser) parseArgs() []Expr {
	args := make([]Expr, 0)
	if _, ok := p.peekOp(")"); ok {
		p.pos++
		return args
	}
	for !p.failed() {
		args = append(args, p.parseSum())
		if _, ok := p.peekOp(","); ok {
			p.pos++
			continue
		}
		p.expectOp(")")
		break
	}
	return args
}
