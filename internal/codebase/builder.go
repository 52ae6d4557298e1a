package codebase

// Builder assembles a Codebase by hand. The loader uses it internally; it is
// also the way to describe small codebases in tests.
type Builder struct {
	cb *Codebase
}

// NewBuilder starts an empty codebase for module.
func NewBuilder(module string) *Builder {
	return &Builder{cb: newCodebase(module)}
}

// Add declares an element. ID and Exported are derived when unset.
func (b *Builder) Add(e Element) *Builder {
	if e.ID == "" {
		e.ID = ElementID(e.Package, e.Name)
	}
	if !e.Exported {
		e.Exported = isExported(e.Name)
	}
	b.cb.addElement(&e)
	return b
}

// Struct declares a struct type with optional exported field names.
func (b *Builder) Struct(pkg, name string, exportedFields ...string) *Builder {
	return b.Add(Element{Package: pkg, Name: name, Kind: KindStruct, ExportedFields: exportedFields})
}

// Interface declares an interface type.
func (b *Builder) Interface(pkg, name string) *Builder {
	return b.Add(Element{Package: pkg, Name: name, Kind: KindInterface})
}

// Func declares a package-level function.
func (b *Builder) Func(pkg, name string) *Builder {
	return b.Add(Element{Package: pkg, Name: name, Kind: KindFunc})
}

// Method attaches a method to an already declared type.
func (b *Builder) Method(typeID, name string, pointer bool) *Builder {
	if e, ok := b.cb.elements[typeID]; ok {
		e.Methods = append(e.Methods, Method{Name: name, PointerReceiver: pointer})
	}
	return b
}

// Depend records a dependency from origin to target at pos.
func (b *Builder) Depend(origin, target string, pos Position) *Builder {
	pkg, _ := SplitID(target)
	b.cb.addDependency(Dependency{Origin: origin, Target: target, TargetPackage: pkg, Pos: pos})
	return b
}

// Build returns the assembled codebase. The builder must not be reused.
func (b *Builder) Build() *Codebase {
	return b.cb
}
