package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/internal/app"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/ingest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server (stdio or http, per configuration)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger, closeLog := newLogger(cfg, os.Stdout, os.Stderr)
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			var failure *ingest.IngestFailure
			if errors.As(err, &failure) {
				logger.Error("change feed unavailable", "error", err)
			}
			return err
		}
		defer a.Close()

		if err := a.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	},
}
