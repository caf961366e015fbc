package symfun

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCompilation         = errors.New("compilation failed")
	ErrValidation          = errors.New("invalid compile input")
	ErrUnknownParameter    = errors.New("unknown parameter")
	ErrBindingConflict     = errors.New("binding conflict")
	ErrNoParameterContext  = errors.New("no parameter context")
	ErrMissingContextValue = errors.New("missing context value")
	ErrArity               = errors.New("wrong number of arguments")
	ErrEvaluation          = errors.New("evaluation failed")
)

// CompilationError means the expression could not be turned into a function.
// Subexpression is the offending part, when known
type CompilationError struct {
	Subexpression string
	Reason        string
	Err           error
}

func (e *CompilationError) Error() string {
	var buf strings.Builder
	buf.WriteString("can't compile")
	if e.Subexpression != "" {
		fmt.Fprintf(&buf, " '%s'", e.Subexpression)
	}
	if e.Reason != "" {
		buf.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		buf.WriteString(": " + e.Err.Error())
	}
	return buf.String()
}

func (e *CompilationError) Is(target error) bool { return target == ErrCompilation }
func (e *CompilationError) Unwrap() error        { return e.Err }

// ValidationError reports misuse of the compiler, e.g. a repeated input symbol
type ValidationError struct {
	Symbol string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Symbol == "" {
		return e.Reason
	}
	return fmt.Sprintf("symbol '%s': %s", e.Symbol, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type UnknownParameterError struct {
	Key string
	// Valid lists generated names of all parameters
	Valid []string
	// Candidates is not empty when Key is a display name shared by several parameters
	Candidates []string
}

func (e *UnknownParameterError) Error() string {
	if len(e.Candidates) > 0 {
		return fmt.Sprintf("parameter name '%s' is ambiguous, use one of: %s", e.Key, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("unknown parameter '%s', valid parameters: %s", e.Key, strings.Join(e.Valid, ", "))
}

func (e *UnknownParameterError) Is(target error) bool { return target == ErrUnknownParameter }

// BindingConflictError is returned when one call of Freeze targets the same
// parameter more than once
type BindingConflictError struct {
	Param string
	Keys  []string
}

func (e *BindingConflictError) Error() string {
	return fmt.Sprintf("parameter '%s' is bound more than once by keys %s", e.Param, strings.Join(e.Keys, ", "))
}

func (e *BindingConflictError) Is(target error) bool { return target == ErrBindingConflict }

type NoParameterContextError struct {
	Param string
}

func (e *NoParameterContextError) Error() string {
	return fmt.Sprintf("dynamic parameter '%s' needs a parameter context, none is set", e.Param)
}

func (e *NoParameterContextError) Is(target error) bool { return target == ErrNoParameterContext }

type MissingContextValueError struct {
	Param  string
	Symbol string
	// Context describes the parameter context if it implements Describer
	Context string
}

func (e *MissingContextValueError) Error() string {
	ret := fmt.Sprintf("parameter context has no value for dynamic parameter '%s' (symbol '%s')", e.Param, e.Symbol)
	if e.Context != "" {
		ret += "; context: " + e.Context
	}
	return ret
}

func (e *MissingContextValueError) Is(target error) bool { return target == ErrMissingContextValue }

// ArityError reports a mismatch between positional arguments and free parameters.
// Missing arguments are listed in Unfilled, extra ones are counted in Surplus
type ArityError struct {
	Unfilled []string
	Surplus  int
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	switch {
	case len(e.Unfilled) > 0:
		return fmt.Sprintf("missing %d positional argument(s): %s", len(e.Unfilled), strings.Join(e.Unfilled, ", "))
	case e.Surplus > 0:
		return fmt.Sprintf("%d surplus positional argument(s)", e.Surplus)
	}
	return fmt.Sprintf("expected %d positional argument(s), got %d", e.Expected, e.Got)
}

func (e *ArityError) Is(target error) bool { return target == ErrArity }

// EvaluationError wraps a panic raised while evaluating, typically by a custom function
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string        { return "evaluation failed: " + e.Err.Error() }
func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }
func (e *EvaluationError) Unwrap() error        { return e.Err }
