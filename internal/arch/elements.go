package arch

import (
	"context"
	"time"

	"cleanarch/internal/codebase"
	"cleanarch/internal/logging"
)

// ElementsRule applies a condition to every element picked by a selector.
type ElementsRule struct {
	name       string
	selector   Selector
	condition  Condition
	as         string
	because    string
	allowEmpty bool
}

// Elements starts an element rule with the given short name.
func Elements(name string) *ElementsRule {
	return &ElementsRule{name: name}
}

// That sets the selector.
func (r *ElementsRule) That(s Selector) *ElementsRule {
	r.selector = s
	return r
}

// Should sets the condition.
func (r *ElementsRule) Should(c Condition) *ElementsRule {
	r.condition = c
	return r
}

// As replaces the generated description.
func (r *ElementsRule) As(description string) *ElementsRule {
	r.as = description
	return r
}

// Because appends a reason to the description.
func (r *ElementsRule) Because(reason string) *ElementsRule {
	r.because = reason
	return r
}

// AllowEmptyShould lets the rule pass when the selector matches nothing.
func (r *ElementsRule) AllowEmptyShould(allow bool) *ElementsRule {
	r.allowEmpty = allow
	return r
}

// Name implements Rule.
func (r *ElementsRule) Name() string {
	return r.name
}

// Description implements Rule.
func (r *ElementsRule) Description() string {
	desc := r.as
	if desc == "" {
		desc = "elements that " + r.selector.Description() + " should " + r.condition.Description()
	}
	if r.because != "" {
		desc += ", because " + r.because
	}
	return desc
}

// Evaluate implements Rule.
func (r *ElementsRule) Evaluate(ctx context.Context, cb *codebase.Codebase) (Result, error) {
	start := time.Now()
	res := Result{Rule: r.name, Description: r.Description(), Severity: SeverityError}
	events := &Events{rule: r.name}

	for _, e := range cb.Elements() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !r.selector.Match(e) {
			continue
		}
		res.Checked++
		r.condition.Check(cb, e, events)
	}

	if res.Checked == 0 && !r.allowEmpty {
		events.Violated("", "", emptyShouldMessage(res.Description), codebase.Position{})
	}

	sortViolations(events.violations)
	res.Violations = events.violations
	res.Duration = time.Since(start)
	logging.RulesDebug("%s: checked %d elements, %d violations", r.name, res.Checked, len(res.Violations))
	return res, nil
}
