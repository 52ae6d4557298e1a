package arch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cleanarch/internal/codebase"
	"cleanarch/internal/logging"
	"cleanarch/internal/mangle"
	"cleanarch/internal/pattern"
)

// OutsideLayer names the pseudo layer of elements that belong to no layer.
// It only takes part when dependencies outside layers are considered.
const OutsideLayer = "<outside>"

// layerSchema derives layer violations from cross-layer dependencies and
// the declared access constraints.
const layerSchema = `
Decl element_layer(Element, Layer).
Decl cross_layer(From, To, SourceLayer, TargetLayer, Pos).
Decl restricts_outgoing(Layer).
Decl restricts_incoming(Layer).
Decl may_access(Source, Target).
Decl may_be_accessed_by(Target, Source).
Decl layer_pair(Source, Target).
Decl outgoing_denied(Source, Target).
Decl incoming_denied(Source, Target).
Decl outgoing_violation(From, To, SourceLayer, TargetLayer, Pos).
Decl incoming_violation(From, To, SourceLayer, TargetLayer, Pos).

layer_pair(S, T) :- cross_layer(F, To, S, T, P).
outgoing_denied(S, T) :- layer_pair(S, T), restricts_outgoing(S), !may_access(S, T).
incoming_denied(S, T) :- layer_pair(S, T), restricts_incoming(T), !may_be_accessed_by(T, S).
outgoing_violation(F, To, S, T, P) :- cross_layer(F, To, S, T, P), outgoing_denied(S, T).
incoming_violation(F, To, S, T, P) :- cross_layer(F, To, S, T, P), incoming_denied(S, T).
`

type layerDef struct {
	name     string
	patterns pattern.Set
}

type accessConstraint struct {
	mayOnlyAccess         []string
	restrictOutgoing      bool
	mayOnlyBeAccessedBy   []string
	restrictIncoming      bool
	mayNotAccessAny       bool
	mayNotBeAccessedByAny bool
}

// LayeredArchitecture checks access constraints between named layers.
type LayeredArchitecture struct {
	name         string
	as           string
	layers       []layerDef
	constraints  map[string]*accessConstraint
	order        []string
	onlyInLayers bool
	allowEmpty   bool
	kernel       mangle.Config
}

// Layered starts a layered architecture rule with the given short name.
func Layered(name string) *LayeredArchitecture {
	return &LayeredArchitecture{
		name:        name,
		constraints: make(map[string]*accessConstraint),
		kernel:      mangle.DefaultConfig(),
	}
}

// LayerDefinition is returned by Layer and completed by DefinedBy.
type LayerDefinition struct {
	arch *LayeredArchitecture
	name string
}

// Layer declares a layer.
func (a *LayeredArchitecture) Layer(name string) *LayerDefinition {
	return &LayerDefinition{arch: a, name: name}
}

// DefinedBy assigns the packages of the layer.
func (d *LayerDefinition) DefinedBy(set pattern.Set) *LayeredArchitecture {
	d.arch.layers = append(d.arch.layers, layerDef{name: d.name, patterns: set})
	return d.arch
}

// LayerConstraint is returned by WhereLayer.
type LayerConstraint struct {
	arch *LayeredArchitecture
	c    *accessConstraint
}

// WhereLayer starts a constraint on a layer.
func (a *LayeredArchitecture) WhereLayer(name string) *LayerConstraint {
	c, ok := a.constraints[name]
	if !ok {
		c = &accessConstraint{}
		a.constraints[name] = c
		a.order = append(a.order, name)
	}
	return &LayerConstraint{arch: a, c: c}
}

// MayOnlyAccessLayers restricts outgoing dependencies to the given layers.
func (lc *LayerConstraint) MayOnlyAccessLayers(layers ...string) *LayeredArchitecture {
	lc.c.restrictOutgoing = true
	lc.c.mayOnlyAccess = append(lc.c.mayOnlyAccess, layers...)
	return lc.arch
}

// MayNotAccessAnyLayer forbids outgoing dependencies to other layers.
func (lc *LayerConstraint) MayNotAccessAnyLayer() *LayeredArchitecture {
	lc.c.restrictOutgoing = true
	lc.c.mayNotAccessAny = true
	return lc.arch
}

// MayOnlyBeAccessedByLayers restricts incoming dependencies to the given layers.
func (lc *LayerConstraint) MayOnlyBeAccessedByLayers(layers ...string) *LayeredArchitecture {
	lc.c.restrictIncoming = true
	lc.c.mayOnlyBeAccessedBy = append(lc.c.mayOnlyBeAccessedBy, layers...)
	return lc.arch
}

// MayNotBeAccessedByAnyLayer forbids incoming dependencies from other layers.
func (lc *LayerConstraint) MayNotBeAccessedByAnyLayer() *LayeredArchitecture {
	lc.c.restrictIncoming = true
	lc.c.mayNotBeAccessedByAny = true
	return lc.arch
}

// ConsideringOnlyDependenciesInLayers ignores dependencies whose origin or
// target belongs to no layer.
func (a *LayeredArchitecture) ConsideringOnlyDependenciesInLayers() *LayeredArchitecture {
	a.onlyInLayers = true
	return a
}

// As replaces the generated description.
func (a *LayeredArchitecture) As(description string) *LayeredArchitecture {
	a.as = description
	return a
}

// AllowEmptyShould lets the rule pass when no element resides in any layer.
func (a *LayeredArchitecture) AllowEmptyShould(allow bool) *LayeredArchitecture {
	a.allowEmpty = allow
	return a
}

// WithKernel overrides the Mangle engine settings.
func (a *LayeredArchitecture) WithKernel(cfg mangle.Config) *LayeredArchitecture {
	a.kernel = cfg
	return a
}

// Name implements Rule.
func (a *LayeredArchitecture) Name() string {
	return a.name
}

// Description implements Rule.
func (a *LayeredArchitecture) Description() string {
	if a.as != "" {
		return a.as
	}
	var b strings.Builder
	b.WriteString("Layered architecture")
	if a.onlyInLayers {
		b.WriteString(" considering only dependencies in layers")
	}
	b.WriteString(", consisting of")
	for _, l := range a.layers {
		fmt.Fprintf(&b, "\nlayer '%s' (%s)", l.name, strings.Join(l.patterns.Strings(), ", "))
	}
	for _, name := range a.order {
		c := a.constraints[name]
		switch {
		case c.mayNotBeAccessedByAny:
			fmt.Fprintf(&b, "\nwhere layer '%s' may not be accessed by any layer", name)
		case c.restrictIncoming:
			fmt.Fprintf(&b, "\nwhere layer '%s' may only be accessed by layers %s", name, quoteList(c.mayOnlyBeAccessedBy))
		}
		switch {
		case c.mayNotAccessAny:
			fmt.Fprintf(&b, "\nwhere layer '%s' may not access any layer", name)
		case c.restrictOutgoing:
			fmt.Fprintf(&b, "\nwhere layer '%s' may only access layers %s", name, quoteList(c.mayOnlyAccess))
		}
	}
	return b.String()
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	return "[" + strings.Join(q, ", ") + "]"
}

func (a *LayeredArchitecture) validate() error {
	defined := make(map[string]bool, len(a.layers))
	for _, l := range a.layers {
		if l.name == "" {
			return fmt.Errorf("layered architecture %s: layer without name", a.name)
		}
		defined[l.name] = true
	}
	check := func(name string) error {
		if !defined[name] {
			return fmt.Errorf("layered architecture %s: layer '%s' is not defined", a.name, name)
		}
		return nil
	}
	for _, name := range a.order {
		if err := check(name); err != nil {
			return err
		}
		c := a.constraints[name]
		for _, n := range append(append([]string{}, c.mayOnlyAccess...), c.mayOnlyBeAccessedBy...) {
			if err := check(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// layersOf returns the layers a package belongs to.
func (a *LayeredArchitecture) layersOf(pkg string) []string {
	var out []string
	for _, l := range a.layers {
		if l.patterns.Match(pkg) {
			out = append(out, l.name)
		}
	}
	if len(out) == 0 && !a.onlyInLayers {
		out = []string{OutsideLayer}
	}
	return out
}

// Kernel builds the Mangle engine holding the layer facts of cb and
// evaluates it. It also returns how many elements reside in a layer.
func (a *LayeredArchitecture) Kernel(ctx context.Context, cb *codebase.Codebase) (*mangle.Engine, int, error) {
	if err := a.validate(); err != nil {
		return nil, 0, err
	}

	engine := mangle.NewEngine(a.kernel)
	if err := engine.LoadSchemaString(layerSchema); err != nil {
		return nil, 0, err
	}

	var facts []mangle.Fact
	for _, name := range a.order {
		c := a.constraints[name]
		if c.restrictOutgoing {
			facts = append(facts, mangle.Fact{Predicate: "restricts_outgoing", Args: []string{name}})
			for _, t := range c.mayOnlyAccess {
				facts = append(facts, mangle.Fact{Predicate: "may_access", Args: []string{name, t}})
			}
		}
		if c.restrictIncoming {
			facts = append(facts, mangle.Fact{Predicate: "restricts_incoming", Args: []string{name}})
			for _, s := range c.mayOnlyBeAccessedBy {
				facts = append(facts, mangle.Fact{Predicate: "may_be_accessed_by", Args: []string{name, s}})
			}
		}
	}

	inLayers := 0
	pkgLayers := make(map[string][]string)
	layersFor := func(pkg string) []string {
		ls, ok := pkgLayers[pkg]
		if !ok {
			ls = a.layersOf(pkg)
			pkgLayers[pkg] = ls
		}
		return ls
	}

	for _, e := range cb.Elements() {
		for _, l := range layersFor(e.Package) {
			if l == OutsideLayer {
				continue
			}
			facts = append(facts, mangle.Fact{Predicate: "element_layer", Args: []string{e.ID, l}})
		}
		if ls := layersFor(e.Package); len(ls) > 0 && ls[0] != OutsideLayer {
			inLayers++
		}
	}

	for _, d := range cb.Dependencies() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		origin, ok := cb.Element(d.Origin)
		if !ok || origin.External {
			continue
		}
		src, dst := layersFor(origin.Package), layersFor(d.TargetPackage)
		if len(src) == 0 || len(dst) == 0 || shareLayer(src, dst) {
			continue
		}
		for _, s := range src {
			for _, t := range dst {
				facts = append(facts, mangle.Fact{
					Predicate: "cross_layer",
					Args:      []string{d.Origin, d.Target, s, t, d.Pos.String()},
				})
			}
		}
	}

	if err := engine.AddFacts(facts); err != nil {
		return nil, 0, err
	}
	if err := engine.Evaluate(); err != nil {
		return nil, 0, err
	}
	logging.KernelDebug("%s: %d layer facts evaluated", a.name, len(facts))
	return engine, inLayers, nil
}

func shareLayer(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Evaluate implements Rule.
func (a *LayeredArchitecture) Evaluate(ctx context.Context, cb *codebase.Codebase) (Result, error) {
	start := time.Now()
	res := Result{Rule: a.name, Description: a.Description(), Severity: SeverityError}

	engine, inLayers, err := a.Kernel(ctx, cb)
	if err != nil {
		return res, err
	}
	res.Checked = inLayers

	outgoing, err := engine.GetFacts("outgoing_violation")
	if err != nil {
		return res, err
	}
	incoming, err := engine.GetFacts("incoming_violation")
	if err != nil {
		return res, err
	}

	type key struct{ from, to, s, t, pos string }
	reasons := make(map[key][]string)
	var keys []key
	add := func(f mangle.Fact, reason string) {
		k := key{f.Args[0], f.Args[1], f.Args[2], f.Args[3], f.Args[4]}
		if _, ok := reasons[k]; !ok {
			keys = append(keys, k)
		}
		reasons[k] = append(reasons[k], reason)
	}
	for _, f := range outgoing {
		add(f, a.outgoingReason(f.Args[2]))
	}
	for _, f := range incoming {
		add(f, a.incomingReason(f.Args[3]))
	}

	events := &Events{rule: a.name}
	for _, k := range keys {
		msg := fmt.Sprintf("Element <%s> (layer '%s') depends on <%s> (layer '%s') in (%s): %s",
			k.from, k.s, k.to, k.t, k.pos, strings.Join(reasons[k], "; "))
		events.Violated(k.from, k.to, msg, parsePos(k.pos))
	}

	if res.Checked == 0 && !a.allowEmpty {
		events.Violated("", "", emptyShouldMessage(res.Description), codebase.Position{})
	}

	sortViolations(events.violations)
	res.Violations = events.violations
	res.Duration = time.Since(start)
	logging.RulesDebug("%s: %d elements in layers, %d violations", a.name, res.Checked, len(res.Violations))
	return res, nil
}

func (a *LayeredArchitecture) outgoingReason(layer string) string {
	c := a.constraints[layer]
	if c == nil || c.mayNotAccessAny {
		return fmt.Sprintf("layer '%s' may not access any layer", layer)
	}
	return fmt.Sprintf("layer '%s' may only access layers %s", layer, quoteList(c.mayOnlyAccess))
}

func (a *LayeredArchitecture) incomingReason(layer string) string {
	c := a.constraints[layer]
	if c == nil || c.mayNotBeAccessedByAny {
		return fmt.Sprintf("layer '%s' may not be accessed by any layer", layer)
	}
	return fmt.Sprintf("layer '%s' may only be accessed by layers %s", layer, quoteList(c.mayOnlyBeAccessedBy))
}

// parsePos reverses Position.String.
func parsePos(s string) codebase.Position {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return codebase.Position{}
	}
	var line int
	if _, err := fmt.Sscanf(s[i+1:], "%d", &line); err != nil {
		return codebase.Position{}
	}
	return codebase.Position{File: s[:i], Line: line}
}

// LayerNames returns the declared layer names in declaration order.
func (a *LayeredArchitecture) LayerNames() []string {
	out := make([]string, len(a.layers))
	for i, l := range a.layers {
		out[i] = l.name
	}
	return out
}
