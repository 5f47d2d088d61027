// Cointhing runs and configures cointhing crypto price tickers.
//
// The serve command is the device daemon: it owns the settings store in the
// data directory, keeps the stats clock in sync and exposes the config link
// over WebSocket. The remaining commands edit a local data directory or,
// with --device, talk to a running daemon over its config link.
//
// Usage:
//
//	cointhing [command] [flags]
//
// See 'cointhing --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cointhing/cointhing/internal/logging"
	"github.com/cointhing/cointhing/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	dataDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "cointhing",
	Short: "Cointhing daemon and configuration utility",
	Long: `Run and configure cointhing crypto price tickers.

'cointhing serve' runs the device daemon. The other commands read or change
the settings in a local data directory, or on a running daemon when
--device is given.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/cointhing/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding settings.json and brightness.json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cointhing %s\n", version.Full())
	},
}
