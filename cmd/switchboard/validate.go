package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"switchboard-hq/switchboard/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the server.

Exits non-zero and lists every violated rule when the configuration is
invalid.

Examples:
  switchboard validate --config /etc/switchboard/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return fmt.Errorf("no config file given (use --config)")
		}

		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}

		fmt.Printf("configuration valid: %s\n", cfgFile)
		fmt.Printf("  listen address:    %s\n", cfg.Server.ListenAddress)
		fmt.Printf("  handshake timeout: %s\n", cfg.Session.HandshakeTimeout)
		fmt.Printf("  turn timeout:      %s\n", cfg.Session.TurnTimeout)
		fmt.Printf("  session ttl:       %s\n", cfg.Session.TTL)
		fmt.Printf("  max sessions:      %d\n", cfg.Session.MaxSessions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
