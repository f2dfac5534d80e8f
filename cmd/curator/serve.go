package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-news-curator/internal/app"
	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"github.com/samvad-hq/samvad-news-curator/internal/metrics"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the curation loop and the HTTP status server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, done, err := setup(os.Stdout)
			if err != nil {
				return err
			}
			defer done()

			metrics.Init()
			logger.InfoObj("curator starting", "config", cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			curator, err := app.NewCurator(ctx, cfg, log)
			if err != nil {
				logger.ErrorObj("failed to initialize curator", "error", err.Error())
				return err
			}

			if err := curator.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("curator run: %w", err)
			}
			return nil
		},
	}
}
