// Package codebase models the top-level declarations of a Go module and the
// references between them. It is the input every architecture rule runs on.
package codebase

import (
	"fmt"
	"sort"
	"strings"

	"cleanarch/internal/pattern"
)

// Kind classifies an element.
type Kind string

const (
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindType      Kind = "type" // any other named type
	KindFunc      Kind = "func"
	KindValue     Kind = "value" // package-level var or const
)

// IsType reports whether the kind is a named type.
func (k Kind) IsType() bool {
	return k == KindStruct || k == KindInterface || k == KindType
}

// Position is a source location.
type Position struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// String renders file:line, or "<unknown>" for an empty position.
func (p Position) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Method describes a method declared on a named type.
type Method struct {
	Name            string `json:"name"`
	PointerReceiver bool   `json:"pointer_receiver"`
}

// Element is a top-level declaration of a package.
type Element struct {
	ID             string   `json:"id"` // pkgpath.Name
	Package        string   `json:"package"`
	Name           string   `json:"name"`
	Kind           Kind     `json:"kind"`
	Exported       bool     `json:"exported"`
	Pos            Position `json:"pos"`
	ExportedFields []string `json:"exported_fields,omitempty"`
	Methods        []Method `json:"methods,omitempty"`
	// External marks elements outside the loaded module; they are known
	// only as dependency targets.
	External bool `json:"external,omitempty"`
}

// PointerMethods returns the names of methods with a pointer receiver.
func (e *Element) PointerMethods() []string {
	var out []string
	for _, m := range e.Methods {
		if m.PointerReceiver {
			out = append(out, m.Name)
		}
	}
	return out
}

// ElementID builds the identifier of a package-level name.
func ElementID(pkgPath, name string) string {
	return pkgPath + "." + name
}

// SplitID splits an element ID into package path and name.
func SplitID(id string) (pkgPath, name string) {
	i := strings.LastIndex(id, ".")
	slash := strings.LastIndex(id, "/")
	if i < 0 || i < slash {
		return id, ""
	}
	return id[:i], id[i+1:]
}

// Dependency is one reference from an element to another element.
type Dependency struct {
	Origin        string   `json:"origin"`
	Target        string   `json:"target"`
	TargetPackage string   `json:"target_package"`
	Pos           Position `json:"pos"`
}

// Codebase holds the loaded elements and their dependencies.
type Codebase struct {
	Module   string
	elements map[string]*Element
	packages map[string][]string
	from     map[string][]Dependency
	to       map[string][]Dependency
	deps     []Dependency
}

func newCodebase(module string) *Codebase {
	return &Codebase{
		Module:   module,
		elements: make(map[string]*Element),
		packages: make(map[string][]string),
		from:     make(map[string][]Dependency),
		to:       make(map[string][]Dependency),
	}
}

func (c *Codebase) addElement(e *Element) {
	if prev, ok := c.elements[e.ID]; ok {
		// A declared element replaces a placeholder created for an external target.
		if !prev.External || e.External {
			return
		}
		c.elements[e.ID] = e
		c.packages[e.Package] = append(c.packages[e.Package], e.ID)
		return
	}
	c.elements[e.ID] = e
	if !e.External {
		c.packages[e.Package] = append(c.packages[e.Package], e.ID)
	}
}

func (c *Codebase) addDependency(d Dependency) {
	if d.Origin == d.Target {
		return
	}
	if _, ok := c.elements[d.Target]; !ok {
		pkg, name := SplitID(d.Target)
		c.elements[d.Target] = &Element{
			ID:       d.Target,
			Package:  pkg,
			Name:     name,
			Exported: isExported(name),
			External: true,
		}
	}
	c.deps = append(c.deps, d)
	c.from[d.Origin] = append(c.from[d.Origin], d)
	c.to[d.Target] = append(c.to[d.Target], d)
}

// Element returns the element with the given ID.
func (c *Codebase) Element(id string) (*Element, bool) {
	e, ok := c.elements[id]
	return e, ok
}

// Elements returns every declared (non-external) element sorted by ID.
func (c *Codebase) Elements() []*Element {
	out := make([]*Element, 0, len(c.elements))
	for _, e := range c.elements {
		if !e.External {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ElementsIn returns declared elements whose package matches set.
func (c *Codebase) ElementsIn(set pattern.Set) []*Element {
	var out []*Element
	for _, e := range c.Elements() {
		if set.Match(e.Package) {
			out = append(out, e)
		}
	}
	return out
}

// Packages returns the loaded package paths, sorted.
func (c *Codebase) Packages() []string {
	out := make([]string, 0, len(c.packages))
	for p := range c.packages {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DependenciesFrom returns the dependencies originating at id.
func (c *Codebase) DependenciesFrom(id string) []Dependency {
	return c.from[id]
}

// DependenciesTo returns the dependencies targeting id.
func (c *Codebase) DependenciesTo(id string) []Dependency {
	return c.to[id]
}

// Dependencies returns every dependency in insertion order.
func (c *Codebase) Dependencies() []Dependency {
	return c.deps
}

// Stats summarizes the codebase.
type Stats struct {
	Packages     int `json:"packages"`
	Elements     int `json:"elements"`
	Dependencies int `json:"dependencies"`
}

// Stats returns counts of packages, declared elements and dependencies.
func (c *Codebase) Stats() Stats {
	n := 0
	for _, e := range c.elements {
		if !e.External {
			n++
		}
	}
	return Stats{Packages: len(c.packages), Elements: n, Dependencies: len(c.deps)}
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := name[0]
	return r >= 'A' && r <= 'Z'
}
