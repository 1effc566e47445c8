package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"switchboard-hq/switchboard/pkg/config"
	"switchboard-hq/switchboard/pkg/server"
	"switchboard-hq/switchboard/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	watch         bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Switchboard proxy server",
	Long: `Start the Switchboard proxy server with the specified configuration.

The server listens on the configured address, pairs clients by the session id
in the model field, and exchanges one utterance per request between the two
sides of each session.

Examples:
  # Start with defaults
  switchboard run

  # Start with a config file and live log-level reload
  switchboard run --config /etc/switchboard/config.yaml --watch

  # Override the listen address
  switchboard run --listen 0.0.0.0:8080

  # Validate config without starting the server
  switchboard run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "watch the config file and apply log-level changes live")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(&cfg.Telemetry.Logging)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer logger.Close()

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if runFlags.watch && cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				if err := logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
					slog.Error("invalid log level in reloaded config", "error", err)
					return
				}
				slog.Info("log level applied", "level", next.Telemetry.Logging.Level)
			})
			if err != nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	return srv.Start(ctx)
}

// loadConfig loads the configured file, or defaults when none is given.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.NewDefaultConfig(), nil
	}
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
