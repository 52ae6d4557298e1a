package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/report"
)

var rulesDescribe bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the Clean Architecture rules",
	Args:  argsValidator(cobra.NoArgs),
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().BoolVarP(&rulesDescribe, "describe", "d", false, "Print the full description of every rule")
}

func runRules(cmd *cobra.Command, args []string) error {
	checker, err := cleanarch.NewFromConfig(cfg)
	if err != nil {
		return usageError{err: err}
	}
	out := cmd.OutOrStdout()

	if rulesDescribe {
		width, styled := 80, false
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
				width = w
			}
			styled = cfg.Report.Color
		}
		doc, err := report.RenderRuleDocs(checker.Rules(), cfg.Rules.IsDisabled, width, styled)
		if err != nil {
			return err
		}
		fmt.Fprint(out, doc)
		return nil
	}

	for _, r := range checker.Rules() {
		state := cfg.Rules.SeverityOf(r.Name())
		if cfg.Rules.IsDisabled(r.Name()) {
			state = "disabled"
		}
		fmt.Fprintf(out, "%-28s %s\n", r.Name(), state)
	}
	return nil
}
