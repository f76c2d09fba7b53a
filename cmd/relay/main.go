package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/app"
	"github.com/ykvlv/todo-relay/internal/config"
	"github.com/ykvlv/todo-relay/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "relay",
		Short:         "TodoMate to chat relay",
		Long:          "Posts TodoMate digests and reminders to Discord or Telegram on a fixed schedule.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, chat bot and health server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(newDigestCommand())
	return root
}

// setup loads .env, the configuration and the logger. Failures here happen
// before any logger exists, so they go to stderr and exit.
func setup() (config.Config, *zap.Logger) {
	if err := config.LoadDotEnv(); err != nil {
		_, _ = os.Stderr.WriteString("dotenv error: " + err.Error() + "\n")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		// We intentionally ignore write errors to avoid shadowing the real cause.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	return cfg, log
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log := setup()
	// Ensure logger flush; ignore sync error (common on some platforms).
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("app init failed", zap.Error(err))
		return err
	}
	if err := application.Run(ctx); err != nil {
		log.Error("app run failed", zap.Error(err))
		return err
	}
	return nil
}
