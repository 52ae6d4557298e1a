package cleanarch

import (
	"context"
	"fmt"
	"path/filepath"

	"cleanarch/internal/codebase"
	"cleanarch/internal/config"
	"cleanarch/internal/mangle"
)

// NewFromConfig builds a Checker from a full configuration.
func NewFromConfig(cfg *config.Config) (*Checker, error) {
	return New(cfg.Paths, cfg.AcceptedEntityDependencies,
		WithRules(cfg.Rules),
		WithKernel(mangle.Config{FactLimit: cfg.Mangle.FactLimit}),
	)
}

// LoadCodebase loads the main project of cfg relative to workspace.
func LoadCodebase(ctx context.Context, workspace string, cfg *config.Config) (*codebase.Codebase, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.GetLoadTimeout())
	defer cancel()

	dir, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return codebase.Load(ctx, codebase.LoadOptions{
		Dir:         dir,
		Patterns:    []string{cfg.Paths.MainProject},
		Tests:       cfg.Load.Tests,
		Workers:     cfg.Load.Workers,
		AllowErrors: cfg.Load.AllowErrors,
		BuildTags:   cfg.Load.BuildTags,
	})
}

// Run loads the workspace and checks it. Like Check, it returns the report
// together with an error wrapping ErrViolations when the check failed.
func Run(ctx context.Context, workspace string, cfg *config.Config) (*Report, error) {
	checker, err := NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	cb, err := LoadCodebase(ctx, workspace, cfg)
	if err != nil {
		return nil, err
	}
	return checker.Check(ctx, cb)
}
