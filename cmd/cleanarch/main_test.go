package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/config"
	"cleanarch/internal/store"
)

// execute runs the root command with fresh flag state and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	logger = zap.NewNop()
	verbose = false
	workspace = ""
	configPath = config.DefaultFile
	cfg = nil
	checkFormat, checkOutput = "", ""
	checkNoHistory, checkPublish = false, false
	historyLimit, historyShowFormat = 20, ""
	initForce, rulesDescribe = false, false
	serveAddr, watchFormat = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// newModule creates a workspace holding only a go.mod.
func newModule(t *testing.T, module string) string {
	t.Helper()
	dir := t.TempDir()
	gomod := fmt.Sprintf("module %s\n\ngo 1.22\n", module)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0644))
	return dir
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(usageErrorf("bad flag")))
	assert.Equal(t, 2, exitCode(fmt.Errorf("wrapped: %w", usageErrorf("bad flag"))))
	assert.Equal(t, 1, exitCode(fmt.Errorf("%w: 3 violations in 1 rules", cleanarch.ErrViolations)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	_, err := execute(t, "rules", "--no-such-flag")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestExtraArgsAreUsageError(t *testing.T) {
	dir := newModule(t, "example.com/app")
	_, err := execute(t, "init", "-w", dir, "extra")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestInitWritesDefaultConfig(t *testing.T) {
	dir := newModule(t, "example.com/app")

	out, err := execute(t, "init", "-w", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "example.com/app")

	loaded, err := config.Load(filepath.Join(dir, config.DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, "app", loaded.Name)
	assert.Equal(t, config.DefaultPaths("example.com/app"), loaded.Paths)
	require.NoError(t, loaded.Validate())
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := newModule(t, "example.com/app")
	_, err := execute(t, "init", "-w", dir)
	require.NoError(t, err)

	_, err = execute(t, "init", "-w", dir)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	_, err = execute(t, "init", "-w", dir, "--force")
	require.NoError(t, err)
}

func TestInitRejectsHCL(t *testing.T) {
	dir := newModule(t, "example.com/app")
	_, err := execute(t, "init", "-w", dir, "-c", ".cleanarch.hcl")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestInitWithoutGoMod(t *testing.T) {
	_, err := execute(t, "init", "-w", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "go.mod")
}

func TestMissingRolesIsUsageError(t *testing.T) {
	// Without a config file the enterprise and application roles are unset.
	_, err := execute(t, "rules", "-w", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestRulesListsEveryRule(t *testing.T) {
	dir := newModule(t, "example.com/app")
	cfgYAML := `paths:
  main_project: ./...
  enterprise_business: example.com/app/internal/entity/...
  application_business: example.com/app/internal/usecase/...
rules:
  disabled: [request-naming]
  severity:
    contracts-are-data: warning
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte(cfgYAML), 0644))

	out, err := execute(t, "rules", "-w", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(cleanarch.RuleNames))
	states := make(map[string]string, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		require.Len(t, fields, 2, "line %d: %q", i, line)
		assert.Equal(t, cleanarch.RuleNames[i], fields[0])
		states[fields[0]] = fields[1]
	}
	assert.Equal(t, "disabled", states[cleanarch.RuleRequestNaming])
	assert.Equal(t, "warning", states[cleanarch.RuleContractsAreData])
	assert.Equal(t, "error", states[cleanarch.RuleLayers])
}

func TestUnknownRuleNameIsUsageError(t *testing.T) {
	dir := newModule(t, "example.com/app")
	cfgYAML := `paths:
  main_project: ./...
  enterprise_business: example.com/app/internal/entity/...
  application_business: example.com/app/internal/usecase/...
rules:
  disabled: [request-namming]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte(cfgYAML), 0644))

	_, err := execute(t, "rules", "-w", dir)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "request-namming")
}

func TestRulesDescribe(t *testing.T) {
	dir := newModule(t, "example.com/app")
	_, err := execute(t, "init", "-w", dir)
	require.NoError(t, err)

	out, err := execute(t, "rules", "-w", dir, "--describe")
	require.NoError(t, err)
	assert.Contains(t, out, "Clean Architecture rules")
	assert.Contains(t, out, cleanarch.RuleEntityEncapsulation)
}

func TestHistoryEmpty(t *testing.T) {
	dir := newModule(t, "example.com/app")
	_, err := execute(t, "init", "-w", dir)
	require.NoError(t, err)

	out, err := execute(t, "history", "-w", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No recorded runs.")
}

func TestHistoryShowUnknownRun(t *testing.T) {
	dir := newModule(t, "example.com/app")
	_, err := execute(t, "init", "-w", dir)
	require.NoError(t, err)

	_, err = execute(t, "history", "show", "no-such-run", "-w", dir)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, exitCode(err))
}

func TestHistoryDisabled(t *testing.T) {
	dir := newModule(t, "example.com/app")
	cfgYAML := `paths:
  main_project: ./...
  enterprise_business: example.com/app/internal/entity/...
  application_business: example.com/app/internal/usecase/...
store:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte(cfgYAML), 0644))

	_, err := execute(t, "history", "-w", dir)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestInvalidFormatIsUsageError(t *testing.T) {
	dir := newModule(t, "example.com/app")
	_, err := execute(t, "init", "-w", dir)
	require.NoError(t, err)

	_, err = execute(t, "check", "-w", dir, "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

// shopConfig writes a config for the shop fixture outside the fixture tree.
func shopConfig(t *testing.T) (string, string) {
	t.Helper()
	shop, err := filepath.Abs("../../internal/codebase/testdata/shop")
	require.NoError(t, err)

	cfgYAML := `paths:
  main_project: ./...
  enterprise_business: example.com/shop/entity/...
  application_business: example.com/shop/usecase/...
  interface_adapters_infra: example.com/shop/adapter/infra/...
  communication_core_with_adapters: example.com/shop/usecase/port/...
store:
  enabled: false
`
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfgYAML), 0644))
	return shop, path
}

func TestCheckShop(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages through the go command")
	}
	shop, cfgPath := shopConfig(t)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "check", "-w", shop, "-c", cfgPath, "-f", "json", "-o", reportPath)
	require.ErrorIs(t, err, cleanarch.ErrViolations)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "Report written to "+reportPath)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module": "example.com/shop"`)
	assert.Contains(t, string(data), cleanarch.RuleEntityEncapsulation)
}

func TestCheckShopWithWarningsOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages through the go command")
	}
	shop, cfgPath := shopConfig(t)
	extra := `rules:
  severity:
    layers: warning
    entity-encapsulation: warning
    response-single-use: warning
`
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(extra)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := execute(t, "check", "-w", shop, "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "WARN")
}

func TestQueryShop(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages through the go command")
	}
	shop, cfgPath := shopConfig(t)

	out, err := execute(t, "query", "element_layer", "-w", shop, "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"example.com/shop/entity.Order", "enterpriseBusinessLayer"`)

	_, err = execute(t, "query", "no_such_predicate", "-w", shop, "-c", cfgPath)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}
