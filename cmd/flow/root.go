package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/flow/internal/config"
	"github.com/aretw0/flow/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flow",
	Short: "flow runs dataflow graphs",
	Long: `flow loads graphs of typed nodes wired by data and control ports, and runs
them locally, behind an HTTP API or as MCP tools.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("dir") {
			loaded.GraphsDir, _ = cmd.Flags().GetString("dir")
		}
		if cmd.Flags().Changed("store") {
			loaded.Store, _ = cmd.Flags().GetString("store")
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("dir", "graphs", "Directory containing the graphs composite nodes may use")
	rootCmd.PersistentFlags().String("store", config.StoreMemory, "Deployment store: memory, file, redis or loam")
}
