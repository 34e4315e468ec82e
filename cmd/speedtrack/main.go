// Command speedtrack reports where a wallet stands in the Speed Track
// onboarding flow.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/speedtrackorg/libspeedtrack-go/config"
	"github.com/speedtrackorg/libspeedtrack-go/logging"
)

var (
	// Global flags
	configPath  string
	rpcURL      string
	contract    string
	networkName string
	verbose     bool

	// Set by PersistentPreRunE
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "speedtrack",
	Short: "Speed Track onboarding flow client",
	Long: `speedtrack reads the Speed Track contract and derives the onboarding step
of a wallet: connect, register, activate, profile or complete.

Provider settings are taken from flags, then SPEEDTRACK_* environment
variables, then the config file, then the network preset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(logging.Options{
			Level:   cfg.LogLevel,
			File:    cfg.LogFile,
			Verbose: verbose,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <address>",
	Short: "Read a wallet once and print its flow state as JSON",
	Long: `Reads the wallet from the contract and prints its flow state. When the
contract cannot be read, the last state saved in the cache is printed with a
transient_error outcome.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch <address>",
	Short: "Poll a wallet and log every step transition",
	Long: `Polls the contract every poll_interval and prints the flow state each time
it changes. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve flow states over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.ConfigPath(config.DefaultDataDir()), "Config file path")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "RPC endpoint (or set SPEEDTRACK_RPC_URL)")
	rootCmd.PersistentFlags().StringVar(&contract, "contract", "", "Speed Track contract address (or set SPEEDTRACK_CONTRACT)")
	rootCmd.PersistentFlags().StringVar(&networkName, "network", "", "Network preset: bsc, bsc-testnet, localhost or custom")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	serveCmd.Flags().String("listen", "", "Listen address (default from config)")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
