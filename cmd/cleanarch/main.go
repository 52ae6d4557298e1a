package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/config"
	"cleanarch/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// usageError marks errors caused by bad flags, arguments or configuration.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cleanarch",
	Short: "Check Go modules against the Clean Architecture rules",
	Long: `cleanarch loads the packages of a Go module, models every top-level
declaration and the references between them, and checks the model against
the Clean Architecture rules: layer access, entity independence and
encapsulation, use case isolation, request/response contracts and ports.

Package roles are configured in .cleanarch.yaml (or .cleanarch.hcl).
Run "cleanarch init" to write a default configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			if workspace, err = os.Getwd(); err != nil {
				return err
			}
		}
		if workspace, err = filepath.Abs(workspace); err != nil {
			return err
		}

		// init writes the configuration, so there is nothing to load yet.
		if cmd.Name() == "init" {
			return nil
		}
		return loadConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func resolveConfigPath() string {
	if filepath.IsAbs(configPath) {
		return configPath
	}
	return filepath.Join(workspace, configPath)
}

func loadConfig() error {
	path := resolveConfigPath()
	loaded, err := config.Load(path)
	if err != nil {
		return usageError{err: err}
	}
	if err := loaded.Validate(); err != nil {
		return usageError{err: fmt.Errorf("invalid config %s: %w", path, err)}
	}
	if err := loaded.Rules.CheckNames(cleanarch.RuleNames); err != nil {
		return usageError{err: fmt.Errorf("invalid config %s: %w", path, err)}
	}
	cfg = loaded

	err = logging.Initialize(workspace, logging.Options{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.Format == "json",
		Categories: cfg.Logging.Categories,
	})
	if err != nil {
		logger.Warn("categorized logging disabled", zap.Error(err))
	}
	logger.Debug("config loaded", zap.String("path", path), zap.String("workspace", workspace))
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Config file, relative to the workspace (.yaml or .hcl)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout of a single check")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(queryCmd)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		return 2
	default:
		return 1
	}
}

// argsValidator turns argument count errors into usage errors.
func argsValidator(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !isViolation(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
