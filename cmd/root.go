// Package cmd implements the relay command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/relay/internal/config"
)

var (
	configPath string
	cfg        *config.Config
	version    = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Conversational message relay backed by a hosted LLM",
	Long: `relay persists chat sessions and their messages, forwards each new user
message with its recent history to a text-generation provider, and stores
the reply.

Quick Start:
  relay serve                       # HTTP API on :8000, RPC on :8001
  relay chat                        # interactive chat in this terminal
  relay chat --addr localhost:8001  # chat through a running server
  relay sessions                    # list recent sessions
  relay watch <session_id>          # follow a session on a running server
  relay models                      # list models of the configured provider`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
