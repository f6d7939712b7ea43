package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/pkg/domain"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and manage persisted run timelines",
}

var runsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored runs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		return cli.ListRuns(cmd.Context(), cmd.OutOrStdout(), backend.Store)
	},
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run>",
	Short: "Print the compiled instructions of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		backend, cleanup, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		output, _ := cmd.Flags().GetString("output")
		format, err := cli.ParseOutput(output)
		if err != nil {
			return err
		}
		return cli.InspectRun(cmd.Context(), cmd.OutOrStdout(), backend.Store, domain.RunID(args[0]), cfg.TurnThresholdDeg, format)
	},
}

var runsRemoveCmd = &cobra.Command{
	Use:     "rm <run>...",
	Aliases: []string{"delete"},
	Short:   "Delete stored runs",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		runs := make([]domain.RunID, len(args))
		for i, a := range args {
			runs[i] = domain.RunID(a)
		}
		return cli.RemoveRuns(cmd.Context(), cmd.OutOrStdout(), backend.Store, runs)
	},
}

func openStore(cmd *cobra.Command) (*cli.Backend, func(), error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	backend, err := cli.OpenBackend(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	return backend, func() {
		if err := backend.Close(); err != nil {
			logger.Warn("failed to close store", "err", err)
		}
	}, nil
}

func init() {
	runsInspectCmd.Flags().StringP("output", "o", string(cli.OutputAuto), "Output format: auto, text, markdown or json")
	runsCmd.AddCommand(runsListCmd, runsInspectCmd, runsRemoveCmd)
	rootCmd.AddCommand(runsCmd)
}
