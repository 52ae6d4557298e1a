package cleanarch

import (
	"fmt"
	"strings"

	"cleanarch/internal/arch"
	"cleanarch/internal/codebase"
	"cleanarch/internal/pattern"
)

// Rule names, in evaluation order.
const (
	RuleLayers              = "layers"
	RuleEntityIndependence  = "entity-independence"
	RuleEntityEncapsulation = "entity-encapsulation"
	RuleUseCaseIsolation    = "use-case-isolation"
	RuleRequestSingleUse    = "request-single-use"
	RuleResponseSingleUse   = "response-single-use"
	RulePortsAreInterfaces  = "ports-are-interfaces"
	RuleRequestNaming       = "request-naming"
	RuleResponseNaming      = "response-naming"
	RuleContractsAreData    = "contracts-are-data"
)

// RuleNames lists every rule name in evaluation order.
var RuleNames = []string{
	RuleLayers,
	RuleEntityIndependence,
	RuleEntityEncapsulation,
	RuleUseCaseIsolation,
	RuleRequestSingleUse,
	RuleResponseSingleUse,
	RulePortsAreInterfaces,
	RuleRequestNaming,
	RuleResponseNaming,
	RuleContractsAreData,
}

// Layer names of the layered architecture rule.
const (
	LayerEnterpriseBusiness  = "enterpriseBusinessLayer"
	LayerApplicationBusiness = "applicationBusinessLayer"
	LayerInterfaceAdapters   = "interfaceAdaptersLayer"
)

const (
	contractRequest  = "request"
	contractResponse = "response"
)

// DefaultExceptionPackages are excluded from entity encapsulation.
var DefaultExceptionPackages = []string{".../exception/...", ".../errors/..."}

var (
	requestPackages  = pattern.MustSet(".../request/...")
	responsePackages = pattern.MustSet(".../response/...")
	enumPackages     = pattern.MustSet(".../enums/...")
)

// roles holds the compiled package sets of every Clean Architecture role.
type roles struct {
	enterprise pattern.Set
	app        pattern.Set
	adapters   pattern.Set
	ports      pattern.Set
	accepted   pattern.Set
	exceptions pattern.Set
}

func (c *Checker) buildRules(r roles) []arch.Rule {
	return []arch.Rule{
		c.layers,
		entityDoesNotDependOnAnyone(r),
		entityIsEncapsulated(r),
		useCasesDoNotCallOtherUseCases(r),
		contractUsedByOnlyOneUseCase(RuleRequestSingleUse, r.app, requestPackages, contractRequest),
		contractUsedByOnlyOneUseCase(RuleResponseSingleUse, r.app, responsePackages, contractResponse),
		communicationThroughInterfaces(r),
		contractNaming(RuleRequestNaming, requestPackages, "Request"),
		contractNaming(RuleResponseNaming, responsePackages, "Response"),
		contractsAreData(),
	}
}

func (c *Checker) layersAreRespected(r roles) *arch.LayeredArchitecture {
	return arch.Layered(RuleLayers).
		ConsideringOnlyDependenciesInLayers().
		Layer(LayerEnterpriseBusiness).DefinedBy(r.enterprise).
		Layer(LayerApplicationBusiness).DefinedBy(r.app).
		Layer(LayerInterfaceAdapters).DefinedBy(r.adapters).
		WhereLayer(LayerInterfaceAdapters).MayNotBeAccessedByAnyLayer().
		WhereLayer(LayerInterfaceAdapters).MayOnlyAccessLayers(LayerApplicationBusiness).
		WhereLayer(LayerApplicationBusiness).MayOnlyBeAccessedByLayers(LayerInterfaceAdapters).
		WhereLayer(LayerApplicationBusiness).MayOnlyAccessLayers(LayerEnterpriseBusiness).
		WhereLayer(LayerEnterpriseBusiness).MayOnlyBeAccessedByLayers(LayerApplicationBusiness).
		WhereLayer(LayerEnterpriseBusiness).MayNotAccessAnyLayer().
		As("The layers of Clean Architecture should be respected.").
		AllowEmptyShould(true).
		WithKernel(c.kernel)
}

func entityDoesNotDependOnAnyone(r roles) *arch.ElementsRule {
	allowed := pattern.MustSet(pattern.Std).Union(r.enterprise).Union(r.accepted)
	return arch.Elements(RuleEntityIndependence).
		That(arch.ResideIn(r.enterprise)).
		Should(arch.OnlyDependOnElementsIn(allowed)).
		As("The entity must not depend on any lib or framework.").
		AllowEmptyShould(true)
}

func entityIsEncapsulated(r roles) *arch.ElementsRule {
	return arch.Elements(RuleEntityEncapsulation).
		That(arch.And(arch.ResideIn(r.enterprise), arch.ResideOutside(r.exceptions), arch.AreStructs())).
		Should(arch.HaveNoExportedFields()).
		Because("entities should only be built through their constructors").
		AllowEmptyShould(true)
}

func useCasesDoNotCallOtherUseCases(r roles) *arch.ElementsRule {
	return arch.Elements(RuleUseCaseIsolation).
		That(arch.ResideIn(r.app)).
		Should(notCallOtherUseCases(r.app, r.ports, requestPackages.Union(responsePackages).Union(r.exceptions)))
}

// notCallOtherUseCases flags dependencies on application business elements
// of another package, unless the target is a port or resides in exempt
// (request, response and exception packages).
func notCallOtherUseCases(app, ports, exempt pattern.Set) arch.Condition {
	return arch.NewCondition("not call other use cases", func(cb *codebase.Codebase, e *codebase.Element, events *arch.Events) {
		for _, d := range cb.DependenciesFrom(e.ID) {
			if d.TargetPackage == e.Package || !app.Match(d.TargetPackage) {
				continue
			}
			if exempt.Match(d.TargetPackage) || ports.Match(d.TargetPackage) {
				continue
			}
			events.Violated(e.ID, d.Target,
				fmt.Sprintf("Element %s calls use case %s in (%s)", e.ID, d.Target, d.Pos), d.Pos)
		}
	})
}

func contractUsedByOnlyOneUseCase(name string, app, contracts pattern.Set, contract string) *arch.ElementsRule {
	return arch.Elements(name).
		That(arch.And(arch.ResideIn(app), arch.ResideIn(contracts), arch.AreTypes())).
		Should(beUsedByOnlyOneUseCase(contract))
}

// beUsedByOnlyOneUseCase requires a contract type to be used by exactly one
// package below the contract package's parent. Each package is one use case.
func beUsedByOnlyOneUseCase(contract string) arch.Condition {
	return arch.NewCondition("be used by only one use case", func(cb *codebase.Codebase, e *codebase.Element, events *arch.Events) {
		parent := contractParent(e.Package, contract)
		contractRoot := parent + "/" + contract

		users := make(map[string]bool)
		var usages []string
		for _, d := range cb.DependenciesTo(e.ID) {
			origin, ok := cb.Element(d.Origin)
			if !ok || !within(origin.Package, parent) || within(origin.Package, contractRoot) {
				continue
			}
			users[origin.Package] = true
			usages = append(usages, d.Pos.String())
		}
		if len(users) == 1 {
			return
		}
		events.Violated(e.ID, "",
			fmt.Sprintf(".%s %s is used in use cases: [%s]", contract, e.ID, strings.Join(usages, ", ")), e.Pos)
	})
}

// contractParent strips the last contract segment and everything below it.
func contractParent(pkg, contract string) string {
	segs := strings.Split(pkg, "/")
	for i := len(segs) - 1; i > 0; i-- {
		if segs[i] == contract {
			return strings.Join(segs[:i], "/")
		}
	}
	if i := strings.LastIndex(pkg, "/"); i > 0 {
		return pkg[:i]
	}
	return pkg
}

func within(pkg, root string) bool {
	return pkg == root || strings.HasPrefix(pkg, root+"/")
}

func communicationThroughInterfaces(r roles) *arch.ElementsRule {
	return arch.Elements(RulePortsAreInterfaces).
		That(arch.And(arch.ResideIn(r.ports), arch.AreTypes())).
		Should(arch.BeInterfaces()).
		AllowEmptyShould(true)
}

func contractNaming(name string, contracts pattern.Set, suffix string) *arch.ElementsRule {
	return arch.Elements(name).
		That(arch.And(arch.ResideIn(contracts), arch.ResideOutside(enumPackages), arch.AreTypes())).
		Should(arch.HaveNameEndingWith(suffix)).
		As(fmt.Sprintf("%s objects should have a name ending with '%s'.", suffix, suffix)).
		AllowEmptyShould(true)
}

func contractsAreData() *arch.ElementsRule {
	return arch.Elements(RuleContractsAreData).
		That(arch.And(
			arch.Or(arch.ResideIn(requestPackages), arch.ResideIn(responsePackages)),
			arch.AreTypes(),
		)).
		Should(arch.BeDataStructs()).
		AllowEmptyShould(true)
}
