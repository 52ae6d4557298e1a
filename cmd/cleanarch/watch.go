package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/watch"
)

var watchFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the check whenever Go sources change",
	Long: `Runs a check, then watches the workspace and checks again after every
batch of changes to .go files, go.mod, go.sum or the config file.
Stop with Ctrl+C.`,
	Args: argsValidator(cobra.NoArgs),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "", "Report format: text, json, markdown (default from config)")
	watchCmd.Flags().BoolVar(&checkNoHistory, "no-history", false, "Do not record runs in the history store")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := reportFormat(watchFormat)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	runOnce := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		rep, err := cleanarch.Run(ctx, workspace, cfg)
		if rep == nil {
			logger.Error("check failed", zap.Error(err))
			return
		}
		if err := emit(ctx, out, rep, format); err != nil {
			logger.Error("failed to emit report", zap.Error(err))
		}
	}

	runOnce(ctx)

	w, err := watch.New(workspace, cfg.GetDebounce(), cfg.Watch.Ignore, func(ctx context.Context, paths []string) {
		logger.Info("change detected", zap.Int("files", len(paths)))
		runOnce(ctx)
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logger.Info("watching for changes", zap.String("workspace", workspace), zap.Int("dirs", len(w.WatchedDirs())))
	<-ctx.Done()

	st := w.GetStats()
	logger.Info("watch stopped", zap.Int("checks", st.ChecksTriggered), zap.Int("errors", st.Errors))
	return nil
}
