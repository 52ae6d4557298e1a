package config

import (
	"fmt"
	"sort"
)

// Severity values accepted in rules.severity.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// RulesConfig selects rules and sets the failure policy.
type RulesConfig struct {
	// Disabled lists rule names that are skipped entirely.
	Disabled []string `yaml:"disabled"`
	// Severity maps rule names to "error" (default) or "warning".
	Severity map[string]string `yaml:"severity"`
	// FailFast stops the check at the first failed rule.
	FailFast bool `yaml:"fail_fast"`
	// ExceptionPackages are excluded from entity encapsulation.
	ExceptionPackages []string `yaml:"exception_packages"`
}

// IsDisabled reports whether the named rule is disabled.
func (r RulesConfig) IsDisabled(name string) bool {
	return contains(r.Disabled, name)
}

// SeverityOf returns the configured severity, defaulting to error.
func (r RulesConfig) SeverityOf(name string) string {
	if s, ok := r.Severity[name]; ok && s != "" {
		return s
	}
	return SeverityError
}

// CheckNames reports rule names in disabled or severity that are not in
// known.
func (r RulesConfig) CheckNames(known []string) error {
	for _, name := range r.Disabled {
		if !contains(known, name) {
			return fmt.Errorf("rules.disabled: unknown rule %q (valid: %v)", name, known)
		}
	}
	names := make([]string, 0, len(r.Severity))
	for name := range r.Severity {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !contains(known, name) {
			return fmt.Errorf("rules.severity: unknown rule %q (valid: %v)", name, known)
		}
	}
	return nil
}

// Validate checks severities.
func (r RulesConfig) Validate() error {
	for name, s := range r.Severity {
		if s != SeverityError && s != SeverityWarning {
			return fmt.Errorf("rules.severity.%s: invalid severity %q (valid: error, warning)", name, s)
		}
	}
	return nil
}
