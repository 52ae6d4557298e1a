package arch

import (
	"fmt"
	"strings"

	"cleanarch/internal/codebase"
	"cleanarch/internal/pattern"
)

// Condition is checked against every selected element.
type Condition interface {
	Description() string
	Check(cb *codebase.Codebase, e *codebase.Element, events *Events)
}

type conditionFunc struct {
	desc  string
	check func(*codebase.Codebase, *codebase.Element, *Events)
}

func (c conditionFunc) Description() string { return c.desc }

func (c conditionFunc) Check(cb *codebase.Codebase, e *codebase.Element, events *Events) {
	c.check(cb, e, events)
}

// NewCondition builds a condition from a function.
func NewCondition(desc string, check func(cb *codebase.Codebase, e *codebase.Element, events *Events)) Condition {
	return conditionFunc{desc: desc, check: check}
}

// OnlyDependOnElementsIn requires every dependency target to reside in set.
func OnlyDependOnElementsIn(set pattern.Set) Condition {
	desc := "only depend on elements that reside in " + describeSet(set)
	return NewCondition(desc, func(cb *codebase.Codebase, e *codebase.Element, events *Events) {
		for _, d := range cb.DependenciesFrom(e.ID) {
			if set.MatchModule(d.TargetPackage, cb.Module) {
				continue
			}
			events.Violated(e.ID, d.Target,
				fmt.Sprintf("Element <%s> depends on <%s> in (%s)", e.ID, d.Target, d.Pos), d.Pos)
		}
	})
}

// HaveNoExportedFields requires struct elements to keep their fields unexported,
// so values can only be built through the package's own functions.
func HaveNoExportedFields() Condition {
	return NewCondition("have no exported fields", func(_ *codebase.Codebase, e *codebase.Element, events *Events) {
		if e.Kind != codebase.KindStruct || len(e.ExportedFields) == 0 {
			return
		}
		events.Violated(e.ID, "",
			fmt.Sprintf("Element <%s> exposes exported fields [%s] in (%s)", e.ID, strings.Join(e.ExportedFields, ", "), e.Pos), e.Pos)
	})
}

// HaveNameEndingWith requires the element name to end with suffix.
func HaveNameEndingWith(suffix string) Condition {
	return NewCondition("have name ending with '"+suffix+"'", func(_ *codebase.Codebase, e *codebase.Element, events *Events) {
		if strings.HasSuffix(e.Name, suffix) {
			return
		}
		events.Violated(e.ID, "",
			fmt.Sprintf("Element <%s> does not have name ending with '%s' in (%s)", e.ID, suffix, e.Pos), e.Pos)
	})
}

// BeInterfaces requires elements to be interface types.
func BeInterfaces() Condition {
	return NewCondition("be interfaces", func(_ *codebase.Codebase, e *codebase.Element, events *Events) {
		if e.Kind == codebase.KindInterface {
			return
		}
		events.Violated(e.ID, "",
			fmt.Sprintf("Element <%s> is not an interface in (%s)", e.ID, e.Pos), e.Pos)
	})
}

// BeDataStructs requires elements to be structs without pointer-receiver
// methods, the closest Go has to immutable records.
func BeDataStructs() Condition {
	return NewCondition("be data structs", func(_ *codebase.Codebase, e *codebase.Element, events *Events) {
		if e.Kind != codebase.KindStruct {
			events.Violated(e.ID, "",
				fmt.Sprintf("Element <%s> is not a struct (%s) in (%s)", e.ID, e.Kind, e.Pos), e.Pos)
			return
		}
		if ptr := e.PointerMethods(); len(ptr) > 0 {
			events.Violated(e.ID, "",
				fmt.Sprintf("Element <%s> declares pointer-receiver methods [%s] in (%s)", e.ID, strings.Join(ptr, ", "), e.Pos), e.Pos)
		}
	})
}
