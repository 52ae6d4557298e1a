package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"cleanarch/internal/arch"
)

// RuleDocsMarkdown lists rules with their descriptions as markdown.
func RuleDocsMarkdown(rules []arch.Rule, disabled func(string) bool) string {
	var b strings.Builder
	b.WriteString("# Clean Architecture rules\n")
	for _, r := range rules {
		fmt.Fprintf(&b, "\n## %s", r.Name())
		if disabled != nil && disabled(r.Name()) {
			b.WriteString(" (disabled)")
		}
		fmt.Fprintf(&b, "\n\n%s\n", markdownLines(r.Description()))
	}
	return b.String()
}

// RenderRuleDocs renders the rule documentation for a terminal. Without
// styling the notty style is used, which only lays out the text.
func RenderRuleDocs(rules []arch.Rule, disabled func(string) bool, width int, styled bool) (string, error) {
	if width <= 0 {
		width = 80
	}
	style := glamour.WithStylePath("notty")
	if styled {
		style = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(RuleDocsMarkdown(rules, disabled))
	if err != nil {
		return "", fmt.Errorf("failed to render rule docs: %w", err)
	}
	return out, nil
}
