// Package mangle wraps the Google Mangle Datalog engine for architecture
// facts. Every fact argument is a string constant.
package mangle

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"cleanarch/internal/logging"
)

// Config holds Mangle engine configuration.
type Config struct {
	FactLimit int `json:"fact_limit"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{FactLimit: 500000}
}

// Fact is a single ground atom.
type Fact struct {
	Predicate string   `json:"predicate"`
	Args      []string `json:"args"`
}

// String returns the Datalog representation of the fact.
func (f Fact) String() string {
	var buf bytes.Buffer
	buf.WriteString(f.Predicate)
	buf.WriteByte('(')
	for i, a := range f.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%q", a)
	}
	buf.WriteString(").")
	return buf.String()
}

// Stats contains engine statistics.
type Stats struct {
	TotalFacts      int            `json:"total_facts"`
	PredicateCounts map[string]int `json:"predicate_counts"`
	LastEval        time.Duration  `json:"last_eval"`
}

// Engine holds a compiled program and its fact store.
type Engine struct {
	config Config

	mu              sync.RWMutex
	store           factstore.ConcurrentFactStore
	programInfo     *analysis.ProgramInfo
	predicateIndex  map[string]ast.PredicateSym
	schemaFragments []parse.SourceUnit
	factCount       int
	lastEval        time.Duration
}

// NewEngine creates an empty engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		config:         cfg,
		store:          factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore()),
		predicateIndex: make(map[string]ast.PredicateSym),
	}
}

// LoadSchemaString parses declarations and rules and recompiles the program.
func (e *Engine) LoadSchemaString(schema string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return fmt.Errorf("failed to parse schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.schemaFragments = append(e.schemaFragments, unit)
	if err := e.rebuildProgramLocked(); err != nil {
		e.schemaFragments = e.schemaFragments[:len(e.schemaFragments)-1]
		return fmt.Errorf("failed to analyze schema: %w", err)
	}
	return nil
}

func (e *Engine) rebuildProgramLocked() error {
	var clauses []ast.Clause
	var decls []ast.Decl
	for _, fragment := range e.schemaFragments {
		clauses = append(clauses, fragment.Clauses...)
		decls = append(decls, fragment.Decls...)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: clauses, Decls: decls}, nil)
	if err != nil {
		return err
	}

	e.programInfo = programInfo
	e.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		e.predicateIndex[sym.Symbol] = sym
	}
	return nil
}

// AddFact inserts one fact. The predicate must be declared.
func (e *Engine) AddFact(predicate string, args ...string) error {
	return e.AddFacts([]Fact{{Predicate: predicate, Args: args}})
}

// AddFacts inserts facts without evaluating rules.
func (e *Engine) AddFacts(facts []Fact) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, f := range facts {
		sym, ok := e.predicateIndex[f.Predicate]
		if !ok {
			return fmt.Errorf("predicate %s is not declared in schemas", f.Predicate)
		}
		if len(f.Args) != sym.Arity {
			return fmt.Errorf("predicate %s expects %d args, got %d", f.Predicate, sym.Arity, len(f.Args))
		}
		if e.config.FactLimit > 0 && e.factCount >= e.config.FactLimit {
			return fmt.Errorf("fact limit exceeded: %d", e.config.FactLimit)
		}
		args := make([]ast.BaseTerm, len(f.Args))
		for i, a := range f.Args {
			args[i] = ast.String(a)
		}
		if e.store.Add(ast.Atom{Predicate: sym, Args: args}) {
			e.factCount++
		}
	}
	return nil
}

// Evaluate runs all rules to a fixpoint over the current facts.
func (e *Engine) Evaluate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.programInfo == nil {
		return fmt.Errorf("no schemas loaded; call LoadSchemaString first")
	}

	var opts []mengine.EvalOption
	if e.config.FactLimit > 0 {
		opts = append(opts, mengine.WithCreatedFactLimit(e.config.FactLimit))
	}

	start := time.Now()
	stats, err := mengine.EvalProgramWithStats(e.programInfo, e.store, opts...)
	if err != nil {
		return fmt.Errorf("rule evaluation failed: %w", err)
	}
	e.lastEval = time.Since(start)
	if n := e.store.EstimateFactCount(); e.config.FactLimit > 0 && n > e.config.FactLimit {
		return fmt.Errorf("fact limit exceeded after evaluation: %d > %d", n, e.config.FactLimit)
	}
	logging.KernelDebug("evaluation complete in %v: %+v", e.lastEval, stats)
	return nil
}

// GetFacts returns every fact of a predicate, sorted by arguments.
func (e *Engine) GetFacts(predicate string) ([]Fact, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", predicate)
	}

	var results []Fact
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]string, len(atom.Args))
		for i, arg := range atom.Args {
			args[i] = termString(arg)
		}
		results = append(results, Fact{Predicate: predicate, Args: args})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].String() < results[j].String()
	})
	return results, nil
}

// Predicates returns the declared predicate names, sorted.
func (e *Engine) Predicates() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.predicateIndex))
	for name := range e.predicateIndex {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GetStats returns overall statistics for the fact store.
func (e *Engine) GetStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := make(map[string]int)
	for _, sym := range e.store.ListPredicates() {
		n := 0
		_ = e.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
		counts[sym.Symbol] = n
	}
	return Stats{
		TotalFacts:      e.store.EstimateFactCount(),
		PredicateCounts: counts,
		LastEval:        e.lastEval,
	}
}

// Clear removes all facts but keeps the compiled program.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore())
	e.factCount = 0
}

func termString(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		switch c.Type {
		case ast.StringType, ast.NameType, ast.BytesType:
			return c.Symbol
		}
		return c.String()
	}
	return fmt.Sprintf("%v", term)
}
