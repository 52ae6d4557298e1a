package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/publish"
	"cleanarch/internal/report"
	"cleanarch/internal/store"
)

var (
	checkFormat    string
	checkOutput    string
	checkNoHistory bool
	checkPublish   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the workspace against the Clean Architecture rules",
	Long: `Loads the main project of the workspace, evaluates every enabled rule
and prints the report. The exit status is 1 when a rule with severity
"error" fails and 2 on configuration or usage errors.`,
	Args: argsValidator(cobra.NoArgs),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "", "Report format: text, json, markdown (default from config)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Write the report to a file instead of stdout")
	checkCmd.Flags().BoolVar(&checkNoHistory, "no-history", false, "Do not record the run in the history store")
	checkCmd.Flags().BoolVar(&checkPublish, "publish", false, "Upload the report to the configured bucket")
}

// commandContext returns the command context bounded by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := reportFormat(checkFormat)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	logger.Debug("running check", zap.String("workspace", workspace), zap.String("format", string(format)))
	rep, checkErr := cleanarch.Run(ctx, workspace, cfg)
	if rep == nil {
		return checkErr
	}
	if err := emit(ctx, cmd.OutOrStdout(), rep, format); err != nil {
		return err
	}
	return checkErr
}

func reportFormat(flag string) (report.Format, error) {
	raw := flag
	if raw == "" {
		raw = cfg.Report.Format
	}
	f, err := report.ParseFormat(raw)
	if err != nil {
		return "", usageError{err: err}
	}
	return f, nil
}

// emit renders rep, records it in the history and publishes it as configured.
func emit(ctx context.Context, out io.Writer, rep *cleanarch.Report, format report.Format) error {
	opts := report.Options{Format: format, Color: useColor(out)}

	output := checkOutput
	if output == "" {
		output = cfg.Report.Output
	}
	if output != "" {
		if !filepath.IsAbs(output) {
			output = filepath.Join(workspace, output)
		}
		opts.Color = false
		if err := report.WriteFile(output, rep, opts); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", output)
	} else if err := report.Render(out, rep, opts); err != nil {
		return err
	}

	if cfg.Store.Enabled && !checkNoHistory {
		if err := saveHistory(ctx, rep); err != nil {
			logger.Warn("failed to record run", zap.String("run", rep.RunID), zap.Error(err))
		}
	}

	if checkPublish || cfg.Publish.Enabled {
		pub, err := publish.New(ctx, cfg.Publish)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		key, err := pub.Publish(ctx, rep, format)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		fmt.Fprintf(out, "Report published to s3://%s/%s\n", cfg.Publish.Bucket, key)
	}
	return nil
}

func saveHistory(ctx context.Context, rep *cleanarch.Report) error {
	st, err := store.Open(ctx, cfg.Store, workspace)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveReport(ctx, rep)
}

// useColor enables styling only for an interactive stdout.
func useColor(w io.Writer) bool {
	if !cfg.Report.Color {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// isViolation reports whether err only signals a failed check.
func isViolation(err error) bool {
	return errors.Is(err, cleanarch.ErrViolations)
}
