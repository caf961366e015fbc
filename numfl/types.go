package numfl

// EvalFunction computes a library function. Arguments are evaluated lazily
// through CallParams, so functions like 'where' only evaluate the branch they take
type EvalFunction func(par *CallParams) float64

// CustomFunction is a caller supplied binding merged into a Library.
// NumParams is -1 for variadic functions
type CustomFunction struct {
	Name      string
	NumParams int
	Fun       func(args ...float64) float64
}

// FunParsed is one 'def' parsed from the source, not yet compiled
type FunParsed struct {
	Sym        string
	Params     []string
	SourceCode string
}

type funDescriptor struct {
	sym               string
	requiredNumParams int // -1 if variable params
	minNumParams      int // only for variable params
	evalFun           EvalFunction
	isCustom          bool
}

// Expression is the compiled form of a formula: a tree of evaluation closures
type Expression struct {
	Args     []*Expression
	EvalFunc EvalFunction
	sym      string
}

// Function is a compiled 'def'. It is immutable and safe for concurrent use
type Function struct {
	Name   string
	Params []string
	Source string
	body   *Expression
}

func (f *Function) NumParams() int {
	return len(f.Params)
}
