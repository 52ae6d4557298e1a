package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/server"
	"cleanarch/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve check reports and run history over HTTP",
	Long: `Starts an HTTP server with the endpoints:

  GET /healthz            liveness check
  GET /v1/report          run a check (?format=json|text|markdown)
  GET /v1/runs            list recorded runs (?limit=N)
  GET /v1/runs/{runID}    a recorded report`,
	Args: argsValidator(cobra.NoArgs),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history server.History
	if cfg.Store.Enabled {
		st, err := store.Open(ctx, cfg.Store, workspace)
		if err != nil {
			return err
		}
		defer st.Close()
		history = st
	}

	check := func(ctx context.Context) (*cleanarch.Report, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return cleanarch.Run(ctx, workspace, cfg)
	}

	handler := server.NewHandler(check, history, logger)
	srv := server.New(cfg.Server, server.NewRouter(handler, logger), logger)
	logger.Info("serving reports", zap.String("addr", cfg.Server.Addr), zap.Bool("history", history != nil))
	return srv.ListenAndServe(ctx)
}
