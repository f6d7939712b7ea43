package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/internal/config"
	"github.com/aretw0/waypoint/pkg/domain"
)

var compileCmd = &cobra.Command{
	Use:   "compile <script>",
	Short: "Replay a gesture script and print the compiled instructions",
	Long: `Replays a YAML gesture script (background, run, segment, circle, drag, undo,
redo, clear steps) against a fresh board and prints the instruction program of
every run that ends up with shapes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, programs, err := replayScript(cmd, args[0])
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		format, err := cli.ParseOutput(output)
		if err != nil {
			return err
		}
		return cli.PrintPrograms(cmd.OutOrStdout(), programs, format)
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <script>",
	Short: "Replay a gesture script and print Mermaid flowcharts of the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, programs, err := replayScript(cmd, args[0])
		if err != nil {
			return err
		}
		cli.PrintFlowcharts(cmd.OutOrStdout(), programs)
		return nil
	},
}

// replayScript runs the script on a board built from the config. Timelines live in
// memory unless --persist is given.
func replayScript(cmd *cobra.Command, path string) (*waypoint.Board, []cli.Program, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	script, err := cli.LoadScript(path)
	if err != nil {
		return nil, nil, err
	}

	if persist, _ := cmd.Flags().GetBool("persist"); !persist {
		cfg.Store.Backend = config.BackendMemory
	}
	backend, err := cli.OpenBackend(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	defer backend.Close()

	var hooks []domain.LifecycleHooks
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		hooks = append(hooks, cli.DebugHooks(logger))
	}
	board, err := cli.NewBoard(cmd.Context(), cfg, backend.Store, logger, hooks...)
	if err != nil {
		return nil, nil, err
	}
	if err := cli.Replay(cmd.Context(), board, script, logger); err != nil {
		return nil, nil, err
	}

	runFlags, _ := cmd.Flags().GetStringSlice("run")
	runs := make([]domain.RunID, 0, len(runFlags))
	for _, r := range runFlags {
		runs = append(runs, domain.RunID(r))
	}
	programs, err := cli.Programs(board, runs)
	return board, programs, err
}

func init() {
	for _, c := range []*cobra.Command{compileCmd, graphCmd} {
		c.Flags().StringSlice("run", nil, "Runs to print (default: every run with shapes)")
		c.Flags().Bool("persist", false, "Replay against the configured store instead of memory")
		rootCmd.AddCommand(c)
	}
	compileCmd.Flags().StringP("output", "o", string(cli.OutputAuto), "Output format: auto, text, markdown or json")
}
