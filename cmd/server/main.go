package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/studybud-server/internal/app"
	"github.com/vovakirdan/studybud-server/internal/config"
	"github.com/vovakirdan/studybud-server/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCommand(opts)

	root := &cobra.Command{
		Use:           "studybud",
		Short:         "StudyBud discussion board server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCommand(opts))
	return root
}

// loadConfig resolves configuration from .env, file and env vars, then applies overrides.
func loadConfig(opts *rootOptions, overrides config.Config) (config.Config, *zerolog.Logger, error) {
	bootLogger := log.New(opts.logLevel)
	config.LoadDotEnv(bootLogger)

	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		return cfg, bootLogger, err
	}
	overrides.LogLevel = opts.logLevel
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config_path", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts, overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting studybud server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	cmd.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts, overrides)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := app.OpenStore(ctx, cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			logger.Info().Str("db_path", cfg.DatabasePath).Msg("schema up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	return cmd
}
