package cleanarch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanarch/internal/arch"
	"cleanarch/internal/codebase"
	"cleanarch/internal/config"
)

func testPaths() config.PathsConfig {
	return config.DefaultPaths("m")
}

func at(line int) codebase.Position {
	return codebase.Position{File: "x.go", Line: line}
}

const (
	order     = "m/internal/entity.Order"
	newOrder  = "m/internal/entity.NewOrder"
	repo      = "m/internal/usecase/port.OrderRepository"
	create    = "m/internal/usecase/createorder.Interactor"
	createReq = "m/internal/usecase/createorder/request.CreateOrderRequest"
	createRes = "m/internal/usecase/createorder/response.CreateOrderResponse"
	ctrl      = "m/internal/adapter/controller.OrderController"
	store     = "m/internal/adapter/infra.OrderStore"
)

// compliant describes a small module that satisfies every rule.
func compliant() *codebase.Builder {
	return codebase.NewBuilder("m").
		Struct("m/internal/entity", "Order").
		Func("m/internal/entity", "NewOrder").
		Interface("m/internal/usecase/port", "OrderRepository").
		Struct("m/internal/usecase/createorder", "Interactor").
		Struct("m/internal/usecase/createorder/request", "CreateOrderRequest", "ID").
		Struct("m/internal/usecase/createorder/response", "CreateOrderResponse", "Total").
		Struct("m/internal/adapter/controller", "OrderController").
		Struct("m/internal/adapter/infra", "OrderStore").
		Depend(newOrder, order, at(1)).
		Depend(order, "time.Time", at(2)).
		Depend(repo, order, at(3)).
		Depend(create, repo, at(4)).
		Depend(create, newOrder, at(5)).
		Depend(create, createReq, at(6)).
		Depend(create, createRes, at(7)).
		Depend(ctrl, create, at(8)).
		Depend(ctrl, createReq, at(9)).
		Depend(store, repo, at(10))
}

func newChecker(t *testing.T, opts ...Option) *Checker {
	t.Helper()
	c, err := New(testPaths(), nil, opts...)
	require.NoError(t, err)
	return c
}

func check(t *testing.T, c *Checker, cb *codebase.Codebase) *Report {
	t.Helper()
	rep, err := c.Check(context.Background(), cb)
	if err != nil {
		require.ErrorIs(t, err, ErrViolations)
	}
	require.NotNil(t, rep)
	return rep
}

func violations(t *testing.T, rep *Report, rule string) []arch.Violation {
	t.Helper()
	res, ok := rep.Result(rule)
	require.True(t, ok, "rule %s not evaluated", rule)
	return res.Violations
}

func TestCheckCompliant(t *testing.T) {
	rep, err := newChecker(t).Check(context.Background(), compliant().Build())
	require.NoError(t, err)

	assert.False(t, rep.Failed())
	assert.Equal(t, Totals{Rules: 10, Passed: 10}, rep.Totals)
	assert.Equal(t, "m", rep.Module)
	assert.NotEmpty(t, rep.RunID)
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))

	var names []string
	for _, r := range rep.Results {
		names = append(names, r.Rule)
	}
	assert.Equal(t, RuleNames, names)
}

func TestLayers(t *testing.T) {
	cb := compliant().Depend(order, store, at(20)).Build()
	rep := check(t, newChecker(t), cb)

	vs := violations(t, rep, RuleLayers)
	require.Len(t, vs, 1)
	assert.Equal(t, order, vs[0].Element)
	assert.Equal(t, store, vs[0].Target)
	assert.Contains(t, vs[0].Message, "layer 'enterpriseBusinessLayer' may not access any layer")
	assert.Contains(t, vs[0].Message, "layer 'interfaceAdaptersLayer' may not be accessed by any layer")
	assert.True(t, rep.Failed())
}

func TestEntityIndependence(t *testing.T) {
	cb := compliant().Depend(order, "github.com/shopspring/decimal.Decimal", at(20)).Build()

	rep := check(t, newChecker(t), cb)
	vs := violations(t, rep, RuleEntityIndependence)
	require.Len(t, vs, 1)
	assert.Equal(t, "github.com/shopspring/decimal.Decimal", vs[0].Target)

	c, err := New(testPaths(), []string{"github.com/shopspring/decimal/..."})
	require.NoError(t, err)
	rep = check(t, c, cb)
	assert.Empty(t, violations(t, rep, RuleEntityIndependence))
}

func TestEntityEncapsulation(t *testing.T) {
	cb := compliant().
		Struct("m/internal/entity", "Leaky", "ID").
		Struct("m/internal/entity/exception", "NotFound", "Code").
		Build()

	rep := check(t, newChecker(t), cb)
	vs := violations(t, rep, RuleEntityEncapsulation)
	require.Len(t, vs, 1)
	assert.Equal(t, "m/internal/entity.Leaky", vs[0].Element)

	custom := newChecker(t, WithRules(config.RulesConfig{ExceptionPackages: []string{"m/internal/entity"}}))
	rep = check(t, custom, cb)
	vs = violations(t, rep, RuleEntityEncapsulation)
	require.Len(t, vs, 1)
	assert.Equal(t, "m/internal/entity/exception.NotFound", vs[0].Element)
}

func TestUseCaseIsolation(t *testing.T) {
	cancel := "m/internal/usecase/cancelorder.Interactor"
	cb := compliant().
		Struct("m/internal/usecase/cancelorder", "Interactor").
		Depend(cancel, create, at(21)).
		Depend(cancel, repo, at(22)).
		Build()

	rep := check(t, newChecker(t), cb)
	vs := violations(t, rep, RuleUseCaseIsolation)
	require.Len(t, vs, 1)
	assert.Equal(t, "Element "+cancel+" calls use case "+create+" in (x.go:21)", vs[0].Message)
}

func TestUseCaseIsolationExceptionPackages(t *testing.T) {
	notFound := "m/internal/usecase/errors.ErrNotFound"
	invalid := "m/internal/usecase/failures.ErrInvalid"
	cb := compliant().
		Add(codebase.Element{Package: "m/internal/usecase/errors", Name: "ErrNotFound", Kind: codebase.KindValue, Exported: true}).
		Add(codebase.Element{Package: "m/internal/usecase/failures", Name: "ErrInvalid", Kind: codebase.KindValue, Exported: true}).
		Depend(create, notFound, at(50)).
		Depend(create, invalid, at(51)).
		Build()

	t.Run("default exception packages", func(t *testing.T) {
		rep := check(t, newChecker(t), cb)
		vs := violations(t, rep, RuleUseCaseIsolation)
		require.Len(t, vs, 1)
		assert.Equal(t, invalid, vs[0].Target)
	})

	t.Run("configured exception packages", func(t *testing.T) {
		c := newChecker(t, WithRules(config.RulesConfig{ExceptionPackages: []string{".../failures/..."}}))
		rep := check(t, c, cb)
		vs := violations(t, rep, RuleUseCaseIsolation)
		require.Len(t, vs, 1)
		assert.Equal(t, notFound, vs[0].Target)
	})
}

func TestRequestSingleUse(t *testing.T) {
	t.Run("shared request", func(t *testing.T) {
		cb := compliant().
			Struct("m/internal/usecase/createorder/batch", "Interactor").
			Depend("m/internal/usecase/createorder/batch.Interactor", createReq, at(30)).
			Build()

		rep := check(t, newChecker(t), cb)
		vs := violations(t, rep, RuleRequestSingleUse)
		require.Len(t, vs, 1)
		assert.Equal(t, ".request "+createReq+" is used in use cases: [x.go:6, x.go:30]", vs[0].Message)
	})

	t.Run("unused response", func(t *testing.T) {
		cb := compliant().
			Struct("m/internal/usecase/createorder/response", "OrphanResponse").
			Build()

		rep := check(t, newChecker(t), cb)
		vs := violations(t, rep, RuleResponseSingleUse)
		require.Len(t, vs, 1)
		assert.Contains(t, vs[0].Message, "is used in use cases: []")
	})

	t.Run("uses from the contract package and adapters do not count", func(t *testing.T) {
		cb := compliant().
			Func("m/internal/usecase/createorder/request", "Validate").
			Depend("m/internal/usecase/createorder/request.Validate", createReq, at(31)).
			Build()

		rep := check(t, newChecker(t), cb)
		assert.Empty(t, violations(t, rep, RuleRequestSingleUse))
	})
}

func TestUseCaseRulesFailWhenEmpty(t *testing.T) {
	cb := codebase.NewBuilder("m").Struct("m/internal/entity", "Order").Build()

	rep, err := newChecker(t).Check(context.Background(), cb)
	require.ErrorIs(t, err, ErrViolations)

	for _, name := range []string{RuleUseCaseIsolation, RuleRequestSingleUse, RuleResponseSingleUse} {
		vs := violations(t, rep, name)
		require.Len(t, vs, 1, name)
		assert.Contains(t, vs[0].Message, "failed to check any elements")
	}
	for _, name := range []string{RuleLayers, RuleEntityIndependence, RulePortsAreInterfaces, RuleRequestNaming, RuleContractsAreData} {
		assert.Empty(t, violations(t, rep, name), name)
	}
}

func TestPortsAreInterfaces(t *testing.T) {
	cb := compliant().Struct("m/internal/usecase/port", "Adapter").Build()
	rep := check(t, newChecker(t), cb)
	vs := violations(t, rep, RulePortsAreInterfaces)
	require.Len(t, vs, 1)
	assert.Equal(t, "m/internal/usecase/port.Adapter", vs[0].Element)
}

func TestContractNamingAndData(t *testing.T) {
	status := "m/internal/usecase/createorder/request/enums.Status"
	cb := compliant().
		Struct("m/internal/usecase/createorder/request", "Payload").
		Depend(create, "m/internal/usecase/createorder/request.Payload", at(40)).
		Add(codebase.Element{Package: "m/internal/usecase/createorder/request/enums", Name: "Status", Kind: codebase.KindType}).
		Depend(create, status, at(41)).
		Method(createRes, "SetTotal", true).
		Build()

	rep := check(t, newChecker(t), cb)

	vs := violations(t, rep, RuleRequestNaming)
	require.Len(t, vs, 1)
	assert.Equal(t, "m/internal/usecase/createorder/request.Payload", vs[0].Element)

	vs = violations(t, rep, RuleContractsAreData)
	require.Len(t, vs, 2)
	assert.Equal(t, status, vs[0].Element, "enums inside contract packages are checked too")
	assert.Contains(t, vs[0].Message, "is not a struct")
	assert.Equal(t, createRes, vs[1].Element)

	assert.Empty(t, violations(t, rep, RuleRequestSingleUse))
	assert.Empty(t, violations(t, rep, RuleResponseNaming))
}

func TestNewRejectsUnknownRuleNames(t *testing.T) {
	_, err := New(testPaths(), nil, WithRules(config.RulesConfig{Disabled: []string{"use-case-isolaton"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use-case-isolaton")

	_, err = New(testPaths(), nil, WithRules(config.RulesConfig{Severity: map[string]string{"layer": config.SeverityWarning}}))
	require.Error(t, err)
}

func TestFailurePolicy(t *testing.T) {
	broken := func() *codebase.Codebase {
		return compliant().
			Depend(ctrl, order, at(20)).
			Struct("m/internal/usecase/port", "Adapter").
			Build()
	}

	t.Run("all rules by default", func(t *testing.T) {
		rep := check(t, newChecker(t), broken())
		assert.Len(t, rep.Results, 10)
		assert.Equal(t, 2, rep.Totals.Failed)
		assert.False(t, rep.Stopped)
	})

	t.Run("fail fast", func(t *testing.T) {
		rep := check(t, newChecker(t, WithRules(config.RulesConfig{FailFast: true})), broken())
		assert.Len(t, rep.Results, 1)
		assert.True(t, rep.Stopped)
	})

	t.Run("disabled", func(t *testing.T) {
		c := newChecker(t, WithRules(config.RulesConfig{Disabled: []string{RuleLayers}}))
		rep := check(t, c, broken())
		assert.Equal(t, []string{RuleLayers}, rep.Skipped)
		assert.Len(t, rep.Results, 9)
		_, ok := rep.Result(RuleLayers)
		assert.False(t, ok)
	})

	t.Run("warnings do not fail", func(t *testing.T) {
		c := newChecker(t, WithRules(config.RulesConfig{Severity: map[string]string{
			RuleLayers:             config.SeverityWarning,
			RulePortsAreInterfaces: config.SeverityWarning,
		}}))
		rep, err := c.Check(context.Background(), broken())
		require.NoError(t, err)
		assert.False(t, rep.Failed())
		assert.Equal(t, 2, rep.Totals.Warnings)
		assert.Equal(t, 2, rep.Totals.Violations)
	})

	t.Run("error wraps counts", func(t *testing.T) {
		_, err := newChecker(t).Check(context.Background(), broken())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrViolations))
		assert.Contains(t, err.Error(), "2 violations in 2 rules")
	})
}

func TestNewRejectsBadPatterns(t *testing.T) {
	paths := testPaths()
	paths.InterfaceAdaptersInfra = "m/["
	_, err := New(paths, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paths.interface_adapters")

	_, err = New(testPaths(), []string{"x/["})
	assert.Error(t, err)

	paths = testPaths()
	paths.EnterpriseBusiness = ""
	_, err = New(paths, nil)
	assert.Error(t, err)
}

func TestRulesDescribeThemselves(t *testing.T) {
	c := newChecker(t)
	require.Len(t, c.Rules(), len(RuleNames))
	for i, r := range c.Rules() {
		assert.Equal(t, RuleNames[i], r.Name())
		assert.NotEmpty(t, r.Description())
	}
	assert.Equal(t, []string{LayerEnterpriseBusiness, LayerApplicationBusiness, LayerInterfaceAdapters}, c.Layers().LayerNames())
}

func TestContractParent(t *testing.T) {
	tests := []struct {
		pkg, contract, want string
	}{
		{"m/usecase/create/request", "request", "m/usecase/create"},
		{"m/usecase/create/request/enums", "request", "m/usecase/create"},
		{"m/usecase/request/create", "request", "m/usecase"},
		{"m/usecase/create", "request", "m/usecase"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, contractParent(tt.pkg, tt.contract), tt.pkg)
	}
}

func TestRunShop(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages through the go command")
	}
	cfg := config.DefaultConfig()
	cfg.Paths = config.PathsConfig{
		MainProject:                   "./...",
		EnterpriseBusiness:            "example.com/shop/entity/...",
		ApplicationBusiness:           "example.com/shop/usecase/...",
		InterfaceAdaptersInfra:        "example.com/shop/adapter/infra/...",
		CommunicationCoreWithAdapters: "example.com/shop/usecase/port/...",
	}
	cfg.Load.Workers = 2

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	rep, err := Run(ctx, "../codebase/testdata/shop", cfg)
	require.ErrorIs(t, err, ErrViolations)

	assert.Equal(t, "example.com/shop", rep.Module)
	assert.NotEmpty(t, violations(t, rep, RuleLayers), "infra reaches into entities")
	assert.Len(t, violations(t, rep, RuleEntityEncapsulation), 1, "Order.Total is exported")
	assert.Len(t, violations(t, rep, RuleResponseSingleUse), 1, "no responses to check")
	for _, name := range []string{RuleEntityIndependence, RuleUseCaseIsolation, RuleRequestSingleUse, RulePortsAreInterfaces, RuleRequestNaming, RuleContractsAreData} {
		assert.Empty(t, violations(t, rep, name), name)
	}
}
