package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard - bidirectional chat rendezvous proxy",
	Long: `Switchboard pairs two chat clients that both expect to talk to an LLM.

Each client POSTs to an OpenAI-compatible Chat Completions endpoint (or an
Anthropic-compatible Messages endpoint) using a shared session id as the
model name. The proxy suspends each request until the opposite side produces
the content that answers it, then returns that content as a chat completion.

It provides:
  - Session pairing keyed by the model field
  - Handshake and turn timeouts with TTL-based session eviction
  - OpenAI and Anthropic wire formats over one shared session space
  - SSE streaming, Prometheus metrics, and a redacted admin surface`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
