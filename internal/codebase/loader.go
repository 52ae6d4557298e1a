package codebase

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"cleanarch/internal/logging"
)

// ErrNoPackages is returned when the load patterns match nothing.
var ErrNoPackages = errors.New("no packages matched")

// LoadOptions controls Load.
type LoadOptions struct {
	// Dir is the directory the patterns are resolved in (module root).
	Dir string
	// Patterns are go/packages patterns, "./..." when empty.
	Patterns []string
	// Tests includes _test.go files.
	Tests bool
	// Workers caps concurrent extraction, NumCPU when <= 0.
	Workers int
	// AllowErrors keeps packages with load or type errors.
	AllowErrors bool
	// BuildTags are passed as -tags.
	BuildTags []string
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedTypesSizes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedModule

// Load type-checks the packages matched by opts and extracts their elements
// and dependencies.
func Load(ctx context.Context, opts LoadOptions) (*Codebase, error) {
	start := time.Now()
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve load dir: %w", err)
	}

	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    loadMode,
		Tests:   opts.Tests,
	}
	if len(opts.BuildTags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.BuildTags, ",")}
	}

	logging.Load("loading packages %v in %s", patterns, dir)
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoPackages, patterns)
	}

	if !opts.AllowErrors {
		if err := firstPackageError(pkgs); err != nil {
			return nil, err
		}
	}

	pkgs = selectVariants(pkgs, opts.Tests)
	module := ""
	for _, p := range pkgs {
		if p.Module != nil {
			module = p.Module.Path
			break
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]extraction, len(pkgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pkg := range pkgs {
		i, pkg := i, pkg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = extractPackage(pkg, dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cb := newCodebase(module)
	for _, r := range results {
		for _, e := range r.elements {
			cb.addElement(e)
		}
	}
	for _, r := range results {
		for _, m := range r.methods {
			if e, ok := cb.elements[m.owner]; ok && !e.External {
				e.Methods = append(e.Methods, m.method)
			}
		}
		for _, d := range r.deps {
			cb.addDependency(d)
		}
	}

	st := cb.Stats()
	logging.Load("loaded %d packages, %d elements, %d dependencies in %v",
		st.Packages, st.Elements, st.Dependencies, time.Since(start).Round(time.Millisecond))
	return cb, nil
}

func firstPackageError(pkgs []*packages.Package) error {
	var errs []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, e.Error())
		}
	})
	if len(errs) == 0 {
		return nil
	}
	if len(errs) > 5 {
		errs = append(errs[:5], fmt.Sprintf("... and %d more", len(errs)-5))
	}
	return fmt.Errorf("packages contain errors:\n  %s", strings.Join(errs, "\n  "))
}

// selectVariants keeps one package per import path. With tests enabled the
// test variant "p [p.test]" replaces p, and generated test mains are dropped.
func selectVariants(pkgs []*packages.Package, tests bool) []*packages.Package {
	byPath := make(map[string]*packages.Package, len(pkgs))
	var order []string
	for _, p := range pkgs {
		if strings.HasSuffix(p.PkgPath, ".test") {
			continue
		}
		prev, ok := byPath[p.PkgPath]
		if !ok {
			order = append(order, p.PkgPath)
			byPath[p.PkgPath] = p
			continue
		}
		if tests && strings.Contains(p.ID, "[") && !strings.Contains(prev.ID, "[") {
			byPath[p.PkgPath] = p
		}
	}
	out := make([]*packages.Package, 0, len(order))
	for _, path := range order {
		out = append(out, byPath[path])
	}
	return out
}

type pendingMethod struct {
	owner  string
	method Method
}

type extraction struct {
	elements []*Element
	methods  []pendingMethod
	deps     []Dependency
}

// extractPackage walks every top-level declaration of pkg.
func extractPackage(pkg *packages.Package, root string) extraction {
	var ex extraction
	if pkg.Types == nil || pkg.TypesInfo == nil {
		logging.Get(logging.CategoryLoad).Warn("skipping %s: no type information", pkg.PkgPath)
		return ex
	}
	w := &walker{pkg: pkg, root: root, ex: &ex}

	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				w.funcDecl(d)
			case *ast.GenDecl:
				w.genDecl(d)
			}
		}
	}
	logging.LoadDebug("extracted %s: %d elements, %d dependencies", pkg.PkgPath, len(ex.elements), len(ex.deps))
	return ex
}

type walker struct {
	pkg  *packages.Package
	root string
	ex   *extraction
}

func (w *walker) position(pos token.Pos) Position {
	p := w.pkg.Fset.Position(pos)
	file := p.Filename
	if rel, err := filepath.Rel(w.root, file); err == nil && !strings.HasPrefix(rel, "..") {
		file = filepath.ToSlash(rel)
	}
	return Position{File: file, Line: p.Line}
}

func (w *walker) id(name string) string {
	return ElementID(w.pkg.PkgPath, name)
}

func (w *walker) funcDecl(d *ast.FuncDecl) {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		if d.Name.Name == "_" {
			return
		}
		w.ex.elements = append(w.ex.elements, &Element{
			ID:       w.id(d.Name.Name),
			Package:  w.pkg.PkgPath,
			Name:     d.Name.Name,
			Kind:     KindFunc,
			Exported: d.Name.IsExported(),
			Pos:      w.position(d.Name.Pos()),
		})
		w.collect(w.id(d.Name.Name), d)
		return
	}

	recvName, pointer := receiverBase(d.Recv.List[0].Type)
	if recvName == "" {
		return
	}
	owner := w.id(recvName)
	w.ex.methods = append(w.ex.methods, pendingMethod{
		owner:  owner,
		method: Method{Name: d.Name.Name, PointerReceiver: pointer},
	})
	w.collect(owner, d)
}

// receiverBase unwraps *T, T[P] and (*T[P]) to the base type name.
func receiverBase(expr ast.Expr) (string, bool) {
	pointer := false
	for {
		switch t := expr.(type) {
		case *ast.ParenExpr:
			expr = t.X
		case *ast.StarExpr:
			pointer = true
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name, pointer
		default:
			return "", pointer
		}
	}
}

func (w *walker) genDecl(d *ast.GenDecl) {
	switch d.Tok {
	case token.TYPE:
		for _, spec := range d.Specs {
			ts := spec.(*ast.TypeSpec)
			if ts.Name.Name == "_" {
				continue
			}
			e := &Element{
				ID:       w.id(ts.Name.Name),
				Package:  w.pkg.PkgPath,
				Name:     ts.Name.Name,
				Kind:     KindType,
				Exported: ts.Name.IsExported(),
				Pos:      w.position(ts.Name.Pos()),
			}
			if obj := w.pkg.TypesInfo.Defs[ts.Name]; obj != nil {
				switch u := obj.Type().Underlying().(type) {
				case *types.Struct:
					e.Kind = KindStruct
					for i := 0; i < u.NumFields(); i++ {
						if f := u.Field(i); f.Exported() {
							e.ExportedFields = append(e.ExportedFields, f.Name())
						}
					}
				case *types.Interface:
					e.Kind = KindInterface
				}
			}
			w.ex.elements = append(w.ex.elements, e)
			w.collect(e.ID, ts)
		}
	case token.VAR, token.CONST:
		for _, spec := range d.Specs {
			vs := spec.(*ast.ValueSpec)
			for _, name := range vs.Names {
				if name.Name == "_" {
					continue
				}
				e := &Element{
					ID:       w.id(name.Name),
					Package:  w.pkg.PkgPath,
					Name:     name.Name,
					Kind:     KindValue,
					Exported: name.IsExported(),
					Pos:      w.position(name.Pos()),
				}
				w.ex.elements = append(w.ex.elements, e)
				w.collect(e.ID, vs)
			}
		}
	}
}

// collect records a dependency for every reference inside node that
// resolves to a package-level object or to a member of a named type.
func (w *walker) collect(origin string, node ast.Node) {
	info := w.pkg.TypesInfo
	ast.Inspect(node, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SelectorExpr:
			if sel, ok := info.Selections[x]; ok {
				if target := namedID(sel.Recv()); target != "" {
					w.add(origin, target, x.Sel.Pos())
				}
			}
		case *ast.Ident:
			obj := info.Uses[x]
			if obj == nil {
				return true
			}
			if target := objectID(obj); target != "" {
				w.add(origin, target, x.Pos())
			}
		}
		return true
	})
}

func (w *walker) add(origin, target string, pos token.Pos) {
	pkg, _ := SplitID(target)
	w.ex.deps = append(w.ex.deps, Dependency{
		Origin:        origin,
		Target:        target,
		TargetPackage: pkg,
		Pos:           w.position(pos),
	})
}

// objectID maps a used object to its element ID, or "" when the object is
// not package-level (locals, fields, methods, builtins, imports).
func objectID(obj types.Object) string {
	if obj.Pkg() == nil {
		return ""
	}
	switch o := obj.(type) {
	case *types.PkgName, *types.Label:
		return ""
	case *types.Var:
		if o.IsField() {
			return ""
		}
	case *types.Func:
		if sig, ok := o.Type().(*types.Signature); ok && sig.Recv() != nil {
			return ""
		}
	}
	if obj.Parent() != obj.Pkg().Scope() {
		return ""
	}
	return ElementID(obj.Pkg().Path(), obj.Name())
}

// namedID returns the element ID of the named type behind t.
func namedID(t types.Type) string {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok {
		return ""
	}
	obj := named.Origin().Obj()
	if obj.Pkg() == nil {
		return ""
	}
	return ElementID(obj.Pkg().Path(), obj.Name())
}
