package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "waypoint",
	Short: "Waypoint turns paths drawn over a map into robot motion instructions",
	Long: `Waypoint is a strategy-drawing board. Paths traced over a reference map are
measured in real units and compiled into "move forward" / "turn" programs,
one per run, with full undo/redo history.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the waypoint YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}

// setup loads the configuration and logger shared by every command.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := cli.CreateLogger(os.Stderr, cfg.Log, debug)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
