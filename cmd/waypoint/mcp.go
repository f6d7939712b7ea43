package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/pkg/adapters/mcp"
	"github.com/aretw0/waypoint/pkg/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server over stdio",
	Long: `Starts the board as an MCP server on Standard Input/Output.
This lets AI agents draw paths and read the compiled instructions as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		// Stdout carries JSON-RPC.
		log.SetOutput(os.Stderr)

		backend, err := cli.OpenBackend(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer backend.Close()

		var hooks []domain.LifecycleHooks
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			hooks = append(hooks, cli.DebugHooks(logger))
		}
		board, err := cli.NewBoard(cmd.Context(), cfg, backend.Store, logger, hooks...)
		if err != nil {
			return err
		}

		srv := mcp.NewServer(board, backend.Sessions(logger), mcp.WithLogger(logger))
		logger.Info("Starting waypoint MCP server (stdio)")
		if err := srv.ServeStdio(); err != nil {
			logger.Error("MCP server execution failed", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
