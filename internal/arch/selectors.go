package arch

import (
	"strings"

	"cleanarch/internal/codebase"
	"cleanarch/internal/pattern"
)

// Selector picks the elements a rule applies to.
type Selector struct {
	desc  string
	match func(*codebase.Element) bool
}

// NewSelector builds a selector from a predicate.
func NewSelector(desc string, match func(*codebase.Element) bool) Selector {
	return Selector{desc: desc, match: match}
}

// Description returns the selector's description.
func (s Selector) Description() string {
	return s.desc
}

// Match reports whether e is selected.
func (s Selector) Match(e *codebase.Element) bool {
	return s.match(e)
}

// ResideIn selects elements whose package matches set.
func ResideIn(set pattern.Set) Selector {
	return NewSelector("reside in "+describeSet(set), func(e *codebase.Element) bool {
		return set.Match(e.Package)
	})
}

// ResideOutside selects elements whose package does not match set.
func ResideOutside(set pattern.Set) Selector {
	return NewSelector("reside outside of "+describeSet(set), func(e *codebase.Element) bool {
		return !set.Match(e.Package)
	})
}

// AreTypes selects named types.
func AreTypes() Selector {
	return NewSelector("are types", func(e *codebase.Element) bool {
		return e.Kind.IsType()
	})
}

// AreStructs selects struct types.
func AreStructs() Selector {
	return NewSelector("are structs", func(e *codebase.Element) bool {
		return e.Kind == codebase.KindStruct
	})
}

// And selects elements matched by every selector.
func And(sels ...Selector) Selector {
	return NewSelector(joinDesc(sels, " and "), func(e *codebase.Element) bool {
		for _, s := range sels {
			if !s.Match(e) {
				return false
			}
		}
		return true
	})
}

// Or selects elements matched by any selector.
func Or(sels ...Selector) Selector {
	return NewSelector(joinDesc(sels, " or "), func(e *codebase.Element) bool {
		for _, s := range sels {
			if s.Match(e) {
				return true
			}
		}
		return false
	})
}

func joinDesc(sels []Selector, sep string) string {
	parts := make([]string, len(sels))
	for i, s := range sels {
		parts[i] = s.desc
	}
	return strings.Join(parts, sep)
}

func describeSet(set pattern.Set) string {
	if len(set) == 1 {
		return "package '" + set[0].String() + "'"
	}
	return "any package " + set.String()
}
