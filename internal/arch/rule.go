// Package arch is a small rule engine over a codebase model: element rules
// ("elements that X should Y") and layered architecture constraints.
package arch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cleanarch/internal/codebase"
)

// Severity decides whether a failed rule fails the whole check.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is a single rule breach.
type Violation struct {
	Rule    string            `json:"rule"`
	Element string            `json:"element,omitempty"`
	Target  string            `json:"target,omitempty"`
	Message string            `json:"message"`
	Pos     codebase.Position `json:"pos"`
}

// Result is the outcome of one rule.
type Result struct {
	Rule        string        `json:"rule"`
	Description string        `json:"description"`
	Severity    Severity      `json:"severity"`
	Checked     int           `json:"checked"`
	Violations  []Violation   `json:"violations,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Failed reports whether the rule found violations.
func (r Result) Failed() bool {
	return len(r.Violations) > 0
}

// Blocking reports whether the result fails a check.
func (r Result) Blocking() bool {
	return r.Failed() && r.Severity != SeverityWarning
}

// Rule is an architecture rule.
type Rule interface {
	// Name is the short stable identifier used in config.
	Name() string
	// Description is the human readable statement of the rule.
	Description() string
	Evaluate(ctx context.Context, cb *codebase.Codebase) (Result, error)
}

// Events collects the violations a condition reports for one rule.
type Events struct {
	rule       string
	violations []Violation
}

// Violated records a violation.
func (ev *Events) Violated(element, target, message string, pos codebase.Position) {
	ev.violations = append(ev.violations, Violation{
		Rule:    ev.rule,
		Element: element,
		Target:  target,
		Message: message,
		Pos:     pos,
	})
}

// Len returns the number of recorded violations.
func (ev *Events) Len() int {
	return len(ev.violations)
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Element != vs[j].Element {
			return vs[i].Element < vs[j].Element
		}
		if vs[i].Pos.File != vs[j].Pos.File {
			return vs[i].Pos.File < vs[j].Pos.File
		}
		if vs[i].Pos.Line != vs[j].Pos.Line {
			return vs[i].Pos.Line < vs[j].Pos.Line
		}
		return vs[i].Target < vs[j].Target
	})
}

func emptyShouldMessage(description string) string {
	return fmt.Sprintf("Rule '%s' failed to check any elements. "+
		"This means either that no elements have been passed to the rule at all, "+
		"or that no elements passed to the rule matched the that() clause.", description)
}
