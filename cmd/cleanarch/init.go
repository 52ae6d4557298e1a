package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"

	"cleanarch/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration for the workspace module",
	Long: `Reads the module path from go.mod and writes a configuration that maps
the conventional internal/entity, internal/usecase and internal/adapter
packages to their Clean Architecture roles.`,
	Args: argsValidator(cobra.NoArgs),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

// modulePath returns the module path declared in dir/go.mod.
func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("go.mod in %s has no module directive", dir)
	}
	return path, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := resolveConfigPath()
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return usageErrorf("init writes YAML only, use a .yaml config path")
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return usageErrorf("%s already exists (use --force to overwrite)", path)
	}

	module, err := modulePath(workspace)
	if err != nil {
		return err
	}

	c := config.DefaultConfig()
	c.Name = filepath.Base(module)
	c.Paths = config.DefaultPaths(module)
	if err := c.Save(path); err != nil {
		return err
	}

	logger.Debug("config written", zap.String("path", path), zap.String("module", module))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s for module %s\n", path, module)
	return nil
}
