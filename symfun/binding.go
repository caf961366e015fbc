package symfun

import "strconv"

type bindingKind byte

const (
	kindFree bindingKind = iota
	kindFrozen
	kindDynamic
)

// BindingState is how one parameter of a BoundFunction gets its value.
// The zero value is Free
type BindingState struct {
	kind  bindingKind
	value float64
}

// Free parameters are passed positionally at call time
func Free() BindingState { return BindingState{kind: kindFree} }

// Frozen parameters always take v
func Frozen(v float64) BindingState { return BindingState{kind: kindFrozen, value: v} }

// Dynamic parameters are read from the parameter context at call time
func Dynamic() BindingState { return BindingState{kind: kindDynamic} }

func (s BindingState) IsFree() bool    { return s.kind == kindFree }
func (s BindingState) IsFrozen() bool  { return s.kind == kindFrozen }
func (s BindingState) IsDynamic() bool { return s.kind == kindDynamic }

// Value returns the frozen value. ok is false unless the state is Frozen
func (s BindingState) Value() (v float64, ok bool) {
	return s.value, s.kind == kindFrozen
}

func (s BindingState) String() string {
	switch s.kind {
	case kindFrozen:
		return "frozen(" + strconv.FormatFloat(s.value, 'g', -1, 64) + ")"
	case kindDynamic:
		return "dynamic"
	}
	return "free"
}

// Binding assigns a state to the parameter addressed by Key. Key is the
// *expr.Symbol, the generated name or the display name of the parameter
type Binding struct {
	Key   any
	State BindingState
}

func Set(key any, v float64) Binding { return Binding{Key: key, State: Frozen(v)} }
func SetDynamic(key any) Binding     { return Binding{Key: key, State: Dynamic()} }
func SetFree(key any) Binding        { return Binding{Key: key, State: Free()} }
