package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/outage-watch/internal/config"
	"github.com/oshokin/outage-watch/internal/service/watcher"
	"github.com/oshokin/outage-watch/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// once runs a single cycle.
	once bool
	// dryRun logs notifications instead of sending them.
	dryRun bool

	// rootCmd runs the watcher.
	rootCmd = &cobra.Command{
		Use:   "outage-watch",
		Short: "Watch an outage schedule and report power changes to Telegram.",
		Long: `Polls the outage schedule page for the configured addresses, records every
power off/on transition in an append-only history and posts a status message
to the Telegram channel whenever the rendered status changes.

Optional listeners: a gRPC trigger (grpc_addr), an HTTP status API with
Prometheus metrics (http_addr) and bot commands (telegram.commands).`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &watcher.Options{
				ConfigPath: configPath,
				Once:       once,
				DryRun:     dryRun,
			}

			return watcher.Run(ctx, options)
		},
	}
)

// Execute runs the outage-watch CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single poll cycle and exit")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log notifications instead of sending them")

	rootCmd.AddCommand(checkCmd, historyCmd)
}
