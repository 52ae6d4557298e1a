package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/mangle"
)

var queryCmd = &cobra.Command{
	Use:   "query <predicate>",
	Short: "Print the derived facts of a layer kernel predicate",
	Long: `Loads the workspace into the Mangle kernel of the layer rule and prints
every fact of the given predicate, for example:

  cleanarch query outgoing_violation
  cleanarch query element_layer

Besides the layer schema the kernel holds element(ID, Package, Kind) and
dependency(From, To, Pos) facts for the whole module.`,
	Args: argsValidator(cobra.ExactArgs(1)),
	RunE: runQuery,
}

// moduleSchema extends the layer kernel with the raw codebase.
const moduleSchema = `
Decl element(ID, Package, Kind).
Decl dependency(From, To, Pos).
`

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	checker, err := cleanarch.NewFromConfig(cfg)
	if err != nil {
		return usageError{err: err}
	}
	cb, err := cleanarch.LoadCodebase(ctx, workspace, cfg)
	if err != nil {
		return err
	}
	engine, _, err := checker.Layers().Kernel(ctx, cb)
	if err != nil {
		return err
	}

	if err := engine.LoadSchemaString(moduleSchema); err != nil {
		return err
	}
	var facts []mangle.Fact
	for _, e := range cb.Elements() {
		facts = append(facts, mangle.Fact{Predicate: "element", Args: []string{e.ID, e.Package, string(e.Kind)}})
	}
	for _, d := range cb.Dependencies() {
		facts = append(facts, mangle.Fact{Predicate: "dependency", Args: []string{d.Origin, d.Target, d.Pos.String()}})
	}
	if err := engine.AddFacts(facts); err != nil {
		return err
	}
	if err := engine.Evaluate(); err != nil {
		return err
	}

	results, err := engine.GetFacts(args[0])
	if err != nil {
		return usageError{err: fmt.Errorf("%w (known: %v)", err, engine.Predicates())}
	}
	out := cmd.OutOrStdout()
	for _, f := range results {
		fmt.Fprintln(out, f.String())
	}
	fmt.Fprintf(out, "%d facts\n", len(results))
	return nil
}
