// Package ident allocates generated parameter names for compiled functions.
//
// A generated name is always a legal formula identifier (see numfl.IsIdentifier),
// never a keyword and never one of the reserved names passed by the caller.
// Allocation is deterministic: the same display name and the same reserved set
// always produce the same result.
package ident

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lunfardo314/easysym/numfl"
)

// Set is a set of names already in use
type Set map[string]struct{}

func NewSet(names ...string) Set {
	ret := make(Set, len(names))
	for _, n := range names {
		ret[n] = struct{}{}
	}
	return ret
}

func (s Set) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Clone() Set {
	ret := make(Set, len(s))
	for n := range s {
		ret[n] = struct{}{}
	}
	return ret
}

// Sorted returns the names in lexical order
func (s Set) Sorted() []string {
	ret := make([]string, 0, len(s))
	for n := range s {
		ret = append(ret, n)
	}
	sort.Strings(ret)
	return ret
}

// Allocate returns a name for a symbol displayed as displayName which is a
// legal identifier and is not in reserved. It does not modify reserved
func Allocate(displayName string, reserved Set) string {
	candidate := Mangle(displayName)
	if !reserved.Has(candidate) {
		return candidate
	}
	for i := 0; ; i++ {
		ret := candidate + "_" + strconv.Itoa(i)
		if !reserved.Has(ret) {
			return ret
		}
	}
}

// AllocateAll allocates names for a whole signature, threading the reserved
// set through. The returned names are pairwise distinct. reserved is not modified
func AllocateAll(displayNames []string, reserved Set) []string {
	used := reserved.Clone()
	ret := make([]string, len(displayNames))
	for i, n := range displayNames {
		ret[i] = Allocate(n, used)
		used.Add(ret[i])
	}
	return ret
}

// Mangle turns an arbitrary display name into a legal identifier. Legal
// identifiers are returned unchanged
func Mangle(name string) string {
	if numfl.IsIdentifier(name) {
		return name
	}
	var buf strings.Builder
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			buf.WriteRune(c)
		case c >= '0' && c <= '9':
			if i == 0 {
				buf.WriteByte('_')
			}
			buf.WriteRune(c)
		default:
			fmt.Fprintf(&buf, "_u%04x", c)
		}
	}
	ret := buf.String()
	if len(ret) == 0 {
		ret = "_"
	}
	for numfl.IsKeyword(ret) {
		ret += "_"
	}
	return ret
}
