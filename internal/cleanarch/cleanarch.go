// Package cleanarch is the Clean Architecture rule set. It compiles the
// configured package roles into architecture rules and checks a codebase
// against them.
package cleanarch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cleanarch/internal/arch"
	"cleanarch/internal/codebase"
	"cleanarch/internal/config"
	"cleanarch/internal/logging"
	"cleanarch/internal/mangle"
	"cleanarch/internal/pattern"
)

// ErrViolations is returned by Check when at least one blocking rule failed.
var ErrViolations = errors.New("architecture violations found")

// Option configures a Checker.
type Option func(*Checker)

// WithRules applies rule selection, severities and the failure policy.
func WithRules(rc config.RulesConfig) Option {
	return func(c *Checker) {
		c.rulesCfg = rc
	}
}

// WithKernel sets the Mangle engine limits used by the layered rule.
func WithKernel(cfg mangle.Config) Option {
	return func(c *Checker) {
		c.kernel = cfg
	}
}

// Checker evaluates the Clean Architecture rules.
type Checker struct {
	paths    config.PathsConfig
	rulesCfg config.RulesConfig
	kernel   mangle.Config
	rules    []arch.Rule
	layers   *arch.LayeredArchitecture
}

// New compiles the package roles of paths and builds the rule set.
// accepted lists extra packages entities may depend on.
func New(paths config.PathsConfig, accepted []string, opts ...Option) (*Checker, error) {
	c := &Checker{paths: paths, kernel: mangle.DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.rulesCfg.CheckNames(RuleNames); err != nil {
		return nil, err
	}

	var r roles
	var err error
	compile := func(key string, raws ...string) pattern.Set {
		if err != nil {
			return nil
		}
		var set pattern.Set
		set, err = pattern.CompileSet(raws...)
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
		return set
	}
	r.enterprise = compile("paths.enterprise_business", paths.EnterpriseBusiness)
	r.app = compile("paths.application_business", paths.ApplicationBusiness)
	r.adapters = compile("paths.interface_adapters",
		paths.InterfaceAdaptersController, paths.InterfaceAdaptersPresenter, paths.InterfaceAdaptersInfra)
	r.ports = compile("paths.communication_core_with_adapters", paths.CommunicationCoreWithAdapters)
	r.accepted = compile("accepted_entity_dependencies", accepted...)
	exceptions := c.rulesCfg.ExceptionPackages
	if len(exceptions) == 0 {
		exceptions = DefaultExceptionPackages
	}
	r.exceptions = compile("rules.exception_packages", exceptions...)
	if err != nil {
		return nil, err
	}
	if len(r.enterprise) == 0 || len(r.app) == 0 {
		return nil, fmt.Errorf("enterprise and application business paths are required")
	}

	c.layers = c.layersAreRespected(r)
	c.rules = c.buildRules(r)
	return c, nil
}

// Rules returns every rule, including disabled ones, in evaluation order.
func (c *Checker) Rules() []arch.Rule {
	return c.rules
}

// Layers returns the layered architecture rule.
func (c *Checker) Layers() *arch.LayeredArchitecture {
	return c.layers
}

// Check evaluates the enabled rules against cb. The report is returned
// even when err wraps ErrViolations.
func (c *Checker) Check(ctx context.Context, cb *codebase.Codebase) (*Report, error) {
	rep := &Report{
		RunID:     uuid.NewString(),
		Module:    cb.Module,
		StartedAt: time.Now().UTC(),
		Codebase:  cb.Stats(),
	}

	for _, rule := range c.rules {
		if c.rulesCfg.IsDisabled(rule.Name()) {
			rep.Skipped = append(rep.Skipped, rule.Name())
			logging.Rules("rule %s disabled", rule.Name())
			continue
		}

		res, err := rule.Evaluate(ctx, cb)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		res.Severity = arch.Severity(c.rulesCfg.SeverityOf(rule.Name()))
		rep.Results = append(rep.Results, res)
		logging.Rules("rule %s: checked=%d violations=%d severity=%s",
			rule.Name(), res.Checked, len(res.Violations), res.Severity)

		if c.rulesCfg.FailFast && res.Blocking() {
			rep.Stopped = true
			break
		}
	}

	rep.FinishedAt = time.Now().UTC()
	rep.Totals = computeTotals(rep.Results)

	if rep.Failed() {
		return rep, fmt.Errorf("%w: %d violations in %d rules", ErrViolations, rep.Totals.Violations, rep.Totals.Failed)
	}
	return rep, nil
}
