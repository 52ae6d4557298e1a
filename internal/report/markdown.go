package report

import (
	"fmt"
	"io"
	"strings"

	"cleanarch/internal/cleanarch"
)

func renderMarkdown(w io.Writer, rep *cleanarch.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Clean Architecture report: %s\n\n", rep.Module)
	fmt.Fprintf(&b, "Run `%s` at %s: %d packages, %d elements, %d dependencies.\n\n",
		rep.RunID, rep.StartedAt.Format("2006-01-02 15:04:05 MST"),
		rep.Codebase.Packages, rep.Codebase.Elements, rep.Codebase.Dependencies)

	b.WriteString("| Rule | Status | Checked | Violations |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range rep.Results {
		fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", r.Rule, status(r), r.Checked, len(r.Violations))
	}
	for _, name := range rep.Skipped {
		fmt.Fprintf(&b, "| %s | SKIPPED | - | - |\n", name)
	}

	for _, r := range rep.Results {
		if !r.Failed() {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", r.Rule)
		fmt.Fprintf(&b, "%s\n\n", markdownLines(r.Description))
		for _, v := range r.Violations {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(v.Message))
		}
	}

	t := rep.Totals
	fmt.Fprintf(&b, "\n**%d rules, %d passed, %d failed, %d warnings, %d violations.**\n",
		t.Rules, t.Passed, t.Failed, t.Warnings, t.Violations)
	if rep.Stopped {
		b.WriteString("\nStopped at the first failed rule (fail_fast).\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// markdownLines keeps explicit line breaks of multi-line descriptions.
func markdownLines(s string) string {
	return strings.ReplaceAll(escapeMarkdown(s), "\n", "  \n")
}

var markdownEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;", "|", "\\|")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
