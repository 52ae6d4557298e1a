package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cleanarch/internal/report"
	"cleanarch/internal/store"
)

var (
	historyLimit      int
	historyShowFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	Args:  argsValidator(cobra.NoArgs),
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the report of a recorded run",
	Args:  argsValidator(cobra.ExactArgs(1)),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list (0 = all)")
	historyShowCmd.Flags().StringVarP(&historyShowFormat, "format", "f", "", "Report format: text, json, markdown (default from config)")
	historyCmd.AddCommand(historyShowCmd)
}

func openHistory(cmd *cobra.Command) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, usageErrorf("run history is disabled (store.enabled: false)")
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	return store.Open(ctx, cfg.Store, workspace)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 0 {
		return usageErrorf("--limit must be >= 0")
	}
	st, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	runs, err := st.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tSTATUS\tRULES\tFAILED\tVIOLATIONS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration.Round(time.Millisecond),
			runStatus(r),
			r.Totals.Rules,
			r.Totals.Failed,
			r.Totals.Violations,
		)
	}
	return tw.Flush()
}

func runStatus(r store.RunSummary) string {
	switch {
	case r.Failed && r.Stopped:
		return "FAIL (stopped)"
	case r.Failed:
		return "FAIL"
	default:
		return "PASS"
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := reportFormat(historyShowFormat)
	if err != nil {
		return err
	}
	st, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	rep, err := st.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := report.Render(out, rep, report.Options{Format: format, Color: useColor(out)}); err != nil {
		return err
	}
	if format != report.FormatText {
		return nil
	}

	counts, err := st.ViolationCounts(ctx, rep.RunID)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "\nStored violations per rule:")
	for _, name := range names {
		fmt.Fprintf(out, "  %-28s %d\n", name, counts[name])
	}
	return nil
}
