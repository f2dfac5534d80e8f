// Package main provides the CLI entrypoint for the news curator. It wires
// the serve and curate subcommands around the shared config and logger.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/samvad-hq/samvad-news-curator/internal/config"
	"github.com/samvad-hq/samvad-news-curator/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "curator: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "curator",
		Short:         "Curates news feeds down to articles with working images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		serveCommand(),
		curateCommand(),
	)
	return rootCmd
}

// setup loads configuration and initializes the global logger on out. The
// returned func flushes the logger.
func setup(out zapcore.WriteSyncer) (*config.Config, logger.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.InitTo(cfg, out)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, func() { _ = logger.Close() }, nil
}
