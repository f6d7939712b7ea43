package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/muesli/termenv"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/internal/presentation/tui"
	"github.com/aretw0/waypoint/pkg/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// Output selects how instruction programs are printed.
type Output string

const (
	OutputAuto Output = "auto" // markdown on a terminal, plain lines otherwise
	OutputText Output = "text"
	OutputMD   Output = "markdown"
	OutputJSON Output = "json"
)

// ParseOutput validates an --output flag value.
func ParseOutput(s string) (Output, error) {
	switch o := Output(s); o {
	case OutputAuto, OutputText, OutputMD, OutputJSON:
		return o, nil
	}
	return "", fmt.Errorf("unknown output %q (want auto, text, markdown or json)", s)
}

// Program is the compiled motion program of one run.
type Program struct {
	Run          domain.RunID         `json:"run"`
	Instructions []domain.Instruction `json:"instructions"`
	Summary      compiler.Summary     `json:"summary"`
}

// Programs compiles the requested runs. With no runs given it picks every run that
// has visible shapes, falling back to the active run.
func Programs(board *waypoint.Board, runs []domain.RunID) ([]Program, error) {
	if len(runs) == 0 {
		for _, run := range board.Runs() {
			if len(board.VisibleShapes(run)) > 0 {
				runs = append(runs, run)
			}
		}
		if len(runs) == 0 {
			runs = []domain.RunID{board.ActiveRun()}
		}
	}

	out := make([]Program, 0, len(runs))
	for _, run := range runs {
		if !board.HasRun(run) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRun, run)
		}
		ins := board.Instructions(run)
		if ins == nil {
			ins = []domain.Instruction{}
		}
		out = append(out, Program{Run: run, Instructions: ins, Summary: board.Summary(run)})
	}
	return out, nil
}

// PrintPrograms writes programs to w in the requested format.
func PrintPrograms(w io.Writer, programs []Program, format Output) error {
	if format == OutputAuto {
		format = OutputText
		if IsTerminal(w) {
			format = OutputMD
		}
	}

	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(programs)

	case OutputMD:
		render, err := tui.NewRenderer()
		if err != nil {
			return err
		}
		for _, p := range programs {
			out, err := render(tui.InstructionsMarkdown(p.Run, p.Instructions, p.Summary))
			if err != nil {
				return err
			}
			fmt.Fprint(w, out)
		}
		return nil

	default:
		profile := termenv.Ascii
		if IsTerminal(w) {
			profile = termenv.EnvColorProfile()
		}
		for i, p := range programs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", p.Run)
			for _, ins := range p.Instructions {
				fmt.Fprintln(w, tui.FormatInstruction(profile, ins))
			}
			fmt.Fprintf(w, "total %s, %d moves, %d turns\n", compiler.FormatCm(p.Summary.DistanceCm), p.Summary.Moves, p.Summary.Turns)
		}
		return nil
	}
}

// PrintFlowcharts writes one Mermaid flowchart per program.
func PrintFlowcharts(w io.Writer, programs []Program) {
	for i, p := range programs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, graph.GenerateMermaid(p.Run, p.Instructions, nil))
	}
}

// ListRuns prints the runs persisted in store with their cursor position.
func ListRuns(ctx context.Context, w io.Writer, store ports.TimelineStore) error {
	runs, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		PrintSystemMessage(w, "No stored runs.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTEP\tTOTAL\tINSTRUCTIONS")
	for _, run := range runs {
		tl, err := store.Load(ctx, run)
		if err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\terror: %v\n", run, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", run, tl.Step, len(tl.History), len(compiler.Compile(tl.Visible())))
	}
	return tw.Flush()
}

// InspectRun prints the compiled program of a stored run.
func InspectRun(ctx context.Context, w io.Writer, store ports.TimelineStore, run domain.RunID, turnThresholdDeg float64, format Output) error {
	tl, err := store.Load(ctx, run)
	if errors.Is(err, domain.ErrTimelineNotFound) {
		return fmt.Errorf("run %q is not stored", run)
	}
	if err != nil {
		return err
	}
	shapes := tl.Visible()
	opt := compiler.WithTurnThreshold(turnThresholdDeg)
	ins := compiler.Compile(shapes, opt)
	if ins == nil {
		ins = []domain.Instruction{}
	}
	return PrintPrograms(w, []Program{{Run: run, Instructions: ins, Summary: compiler.Summarize(shapes, opt)}}, format)
}

// RemoveRuns deletes stored runs.
func RemoveRuns(ctx context.Context, w io.Writer, store ports.TimelineStore, runs []domain.RunID) error {
	var errs []error
	for _, run := range runs {
		if err := store.Delete(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", run, err))
			continue
		}
		PrintSystemMessage(w, "Removed '%s'.", run)
	}
	return errors.Join(errs...)
}
