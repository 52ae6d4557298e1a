package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"cleanarch/internal/arch"
	"cleanarch/internal/cleanarch"
)

var (
	colorFail    = lipgloss.Color("#e53935")
	colorPass    = lipgloss.Color("#8BC34A")
	colorWarn    = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#8a94a6")
	colorPrimary = lipgloss.Color("#101F38")

	// Violation messages follow the terminal background.
	colorMessage = lipgloss.AdaptiveColor{Light: string(colorPrimary), Dark: "#D7DEEA"}
)

// styles holds the text report styles. The zero value renders plain text.
type styles struct {
	title   func(string) string
	pass    func(string) string
	fail    func(string) string
	warn    func(string) string
	muted   func(string) string
	message func(string) string
}

func plain(s string) string { return s }

func newStyles(color bool) styles {
	if !color {
		return styles{title: plain, pass: plain, fail: plain, warn: plain, muted: plain, message: plain}
	}
	render := func(st lipgloss.Style) func(string) string {
		return func(s string) string { return st.Render(s) }
	}
	return styles{
		title:   render(lipgloss.NewStyle().Bold(true).Foreground(colorInfo)),
		pass:    render(lipgloss.NewStyle().Bold(true).Foreground(colorPass)),
		fail:    render(lipgloss.NewStyle().Bold(true).Foreground(colorFail)),
		warn:    render(lipgloss.NewStyle().Bold(true).Foreground(colorWarn)),
		muted:   render(lipgloss.NewStyle().Foreground(colorMuted)),
		message: render(lipgloss.NewStyle().Foreground(colorMessage).PaddingLeft(4)),
	}
}

func status(r arch.Result) string {
	switch {
	case r.Blocking():
		return "FAIL"
	case r.Failed():
		return "WARN"
	default:
		return "PASS"
	}
}

func renderText(w io.Writer, rep *cleanarch.Report, color bool) error {
	st := newStyles(color)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", st.title("cleanarch report"), rep.Module)
	fmt.Fprintf(&b, "%s\n\n", st.muted(fmt.Sprintf("run %s: %d packages, %d elements, %d dependencies",
		rep.RunID, rep.Codebase.Packages, rep.Codebase.Elements, rep.Codebase.Dependencies)))

	for _, r := range rep.Results {
		label := status(r)
		switch label {
		case "FAIL":
			label = st.fail(label)
		case "WARN":
			label = st.warn(label)
		default:
			label = st.pass(label)
		}
		fmt.Fprintf(&b, "%s %s %s\n", label, r.Rule, st.muted(fmt.Sprintf("(checked %d, %d violations)", r.Checked, len(r.Violations))))
		if !r.Failed() {
			continue
		}
		for _, line := range strings.Split(r.Description, "\n") {
			fmt.Fprintf(&b, "%s\n", st.message(line))
		}
		for _, v := range r.Violations {
			fmt.Fprintf(&b, "%s\n", st.message("- "+v.Message))
		}
	}

	if len(rep.Skipped) > 0 {
		fmt.Fprintf(&b, "\n%s %s\n", st.muted("skipped:"), strings.Join(rep.Skipped, ", "))
	}
	if rep.Stopped {
		fmt.Fprintf(&b, "%s\n", st.warn("stopped at the first failed rule (fail_fast)"))
	}

	t := rep.Totals
	summary := fmt.Sprintf("%d rules, %d passed, %d failed, %d warnings, %d violations in %v",
		t.Rules, t.Passed, t.Failed, t.Warnings, t.Violations, rep.Duration().Round(time.Millisecond))
	if rep.Failed() {
		summary = st.fail(summary)
	} else {
		summary = st.pass(summary)
	}
	fmt.Fprintf(&b, "\n%s\n", summary)

	_, err := io.WriteString(w, b.String())
	return err
}
