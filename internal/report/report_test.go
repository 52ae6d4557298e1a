package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanarch/internal/arch"
	"cleanarch/internal/cleanarch"
	"cleanarch/internal/codebase"
	"cleanarch/internal/config"
)

func sampleReport() *cleanarch.Report {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &cleanarch.Report{
		RunID:      "5f0c6a7e-8a41-4b8e-9d0a-3c2d1e0f9b11",
		Module:     "example.com/shop",
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Millisecond),
		Codebase:   codebase.Stats{Packages: 5, Elements: 12, Dependencies: 30},
		Results: []arch.Result{
			{Rule: "layers", Description: "The layers of Clean Architecture should be respected.", Severity: arch.SeverityError, Checked: 12},
			{
				Rule:        "entity-encapsulation",
				Description: "elements that reside in package 'example.com/shop/entity/...' should have no exported fields",
				Severity:    arch.SeverityError,
				Checked:     1,
				Violations: []arch.Violation{{
					Rule:    "entity-encapsulation",
					Element: "example.com/shop/entity.Order",
					Message: "Element <example.com/shop/entity.Order> exposes exported fields [Total] in (entity/order.go:8)",
					Pos:     codebase.Position{File: "entity/order.go", Line: 8},
				}},
			},
			{
				Rule:        "ports-are-interfaces",
				Description: "ports are interfaces",
				Severity:    arch.SeverityWarning,
				Checked:     2,
				Violations:  []arch.Violation{{Rule: "ports-are-interfaces", Message: "Element <p.S> is not an interface in (p/s.go:3)"}},
			},
		},
		Skipped: []string{"response-naming"},
		Totals:  cleanarch.Totals{Rules: 3, Passed: 1, Failed: 1, Warnings: 1, Violations: 2},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range config.ValidFormats {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("html")
	assert.Error(t, err)

	assert.Equal(t, "md", FormatMarkdown.Ext())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
}

func TestRenderTextPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), Options{Format: FormatText}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "cleanarch report example.com/shop\n"))
	assert.Contains(t, out, "PASS layers (checked 12, 0 violations)")
	assert.Contains(t, out, "FAIL entity-encapsulation (checked 1, 1 violations)")
	assert.Contains(t, out, "WARN ports-are-interfaces")
	assert.Contains(t, out, "- Element <example.com/shop/entity.Order> exposes exported fields [Total]")
	assert.Contains(t, out, "skipped: response-naming")
	assert.Contains(t, out, "3 rules, 1 passed, 1 failed, 1 warnings, 2 violations in 42ms")
	assert.NotContains(t, out, "\x1b[")
	assert.NotContains(t, out, "The layers of Clean Architecture", "passing rules are not described")
}

func TestRenderTextColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), Options{Format: FormatText, Color: true}))
	assert.Contains(t, buf.String(), "entity-encapsulation")
	assert.Contains(t, buf.String(), "FAIL")
}

func TestMessageColorReadableOnDarkBackground(t *testing.T) {
	assert.Equal(t, string(colorPrimary), colorMessage.Light)
	assert.NotEqual(t, colorMessage.Light, colorMessage.Dark)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), Options{Format: FormatText, Color: true}))
	assert.Contains(t, buf.String(), "exposes exported fields [Total]")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), Options{Format: FormatJSON}))

	var got cleanarch.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "5f0c6a7e-8a41-4b8e-9d0a-3c2d1e0f9b11", got.RunID)
	require.Len(t, got.Results, 3)
	assert.Equal(t, "entity/order.go", got.Results[1].Violations[0].Pos.File)
	assert.True(t, got.Failed())
}

func TestRenderMarkdown(t *testing.T) {
	rep := sampleReport()
	rep.Stopped = true
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, rep, Options{Format: FormatMarkdown}))
	out := buf.String()

	assert.Contains(t, out, "# Clean Architecture report: example.com/shop")
	assert.Contains(t, out, "| entity-encapsulation | FAIL | 1 | 1 |")
	assert.Contains(t, out, "| response-naming | SKIPPED | - | - |")
	assert.Contains(t, out, "## entity-encapsulation")
	assert.Contains(t, out, "- Element &lt;example.com/shop/entity.Order&gt;")
	assert.Contains(t, out, "Stopped at the first failed rule")
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, sampleReport(), Options{Format: "html"}))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.md")
	require.NoError(t, WriteFile(path, sampleReport(), Options{Format: FormatMarkdown}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| layers | PASS | 12 | 0 |")
}

func TestRuleDocs(t *testing.T) {
	c, err := cleanarch.New(config.DefaultPaths("example.com/shop"), nil)
	require.NoError(t, err)

	disabled := func(name string) bool { return name == cleanarch.RuleLayers }
	md := RuleDocsMarkdown(c.Rules(), disabled)
	assert.Contains(t, md, "## layers (disabled)")
	assert.Contains(t, md, "## request-naming\n\nRequest objects should have a name ending with 'Request'.")

	out, err := RenderRuleDocs(c.Rules(), disabled, 100, false)
	require.NoError(t, err)
	assert.Contains(t, out, "entity-independence")
	assert.Contains(t, out, "The entity must not depend on any lib or framework.")
}
