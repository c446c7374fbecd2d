package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/weiwei-tsao/overlay-review/internal/platform/logging"
)

var (
	logLevel  string
	logFormat string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "overlayctl",
		Short:         "Overlay suggestion and import tooling",
		Long:          `Reconcile exported overlay suggestions offline and follow floor-plan imports from a terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "console"), "log format (console or json)")

	root.AddCommand(newAggregateCmd(), newWatchCmd())
	return root
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: cmd.ErrOrStderr(),
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load(".env.local", ".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger := logging.New(logging.Config{Format: "console"})
		logger.Error().Err(err).Msg("overlayctl")
		stop()
		os.Exit(1)
	}
}
