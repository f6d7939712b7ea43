package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/draw"
	"github.com/aretw0/waypoint/pkg/geometry"
)

// StepKind names a gesture script step.
type StepKind string

const (
	StepBackground StepKind = "background"
	StepRun        StepKind = "run"
	StepSegment    StepKind = "segment"
	StepCircle     StepKind = "circle"
	StepDrag       StepKind = "drag"
	StepUndo       StepKind = "undo"
	StepRedo       StepKind = "redo"
	StepClear      StepKind = "clear"
)

// Step is one decoded script entry. Gestures carry the pointer path from press to
// release; every point but the first is also a move event.
type Step struct {
	Kind       StepKind
	Background *domain.Background
	Run        domain.RunID
	Tool       domain.Tool
	Style      domain.Style
	Points     []geometry.Point
}

// Script is a replayable list of board interactions:
//
//	steps:
//	  - background: {source: field.png, width_px: 1000, height_px: 500}
//	  - run: run-1
//	  - segment: {from: [0, 0], to: [500, 0]}
//	  - drag: {tool: segment, points: [[500, 0], [500, 120], [500, 300]]}
//	  - circle: {center: [300, 200], radius: 40, color: "#1e88e5"}
//	  - undo: run-1
type Script struct {
	Steps []Step
}

type pair [2]float64

func (p pair) point() geometry.Point { return geometry.Point{X: p[0], Y: p[1]} }

type segmentArgs struct {
	Run         string  `mapstructure:"run"`
	Color       string  `mapstructure:"color"`
	StrokeWidth float64 `mapstructure:"stroke_width"`
	From        pair    `mapstructure:"from"`
	To          pair    `mapstructure:"to"`
}

type circleArgs struct {
	Run         string  `mapstructure:"run"`
	Color       string  `mapstructure:"color"`
	StrokeWidth float64 `mapstructure:"stroke_width"`
	Center      pair    `mapstructure:"center"`
	Radius      float64 `mapstructure:"radius"`
}

type dragArgs struct {
	Run         string  `mapstructure:"run"`
	Color       string  `mapstructure:"color"`
	StrokeWidth float64 `mapstructure:"stroke_width"`
	Tool        string  `mapstructure:"tool"`
	Points      []pair  `mapstructure:"points"`
}

// LoadScript reads a gesture script file.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return ParseScript(f)
}

// ParseScript decodes a YAML gesture script.
func ParseScript(r io.Reader) (*Script, error) {
	var raw struct {
		Steps []map[string]any `yaml:"steps"`
	}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &Script{}, nil
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	script := &Script{Steps: make([]Step, 0, len(raw.Steps))}
	for i, entry := range raw.Steps {
		if len(entry) != 1 {
			return nil, fmt.Errorf("step %d: expected exactly one action, got %d", i+1, len(entry))
		}
		for key, value := range entry {
			step, err := decodeStep(StepKind(key), value)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i+1, key, err)
			}
			script.Steps = append(script.Steps, step)
		}
	}
	return script, nil
}

func decodeStep(kind StepKind, value any) (Step, error) {
	step := Step{Kind: kind}
	switch kind {
	case StepBackground:
		var bg domain.Background
		if err := decodeArgs(value, &bg); err != nil {
			return step, err
		}
		if err := bg.Validate(); err != nil {
			return step, err
		}
		step.Background = &bg

	case StepRun:
		var run string
		if err := decodeArgs(value, &run); err != nil {
			return step, err
		}
		if run == "" {
			return step, errors.New("run id is required")
		}
		step.Run = domain.RunID(run)

	case StepUndo, StepRedo, StepClear:
		// A bare "undo:" applies to the active run.
		if value != nil {
			var run string
			if err := decodeArgs(value, &run); err != nil {
				return step, err
			}
			step.Run = domain.RunID(run)
		}

	case StepSegment:
		var args segmentArgs
		if err := decodeArgs(value, &args); err != nil {
			return step, err
		}
		step.Run = domain.RunID(args.Run)
		step.Tool = domain.ToolSegment
		step.Style = domain.Style{Color: args.Color, StrokeWidth: args.StrokeWidth}
		step.Points = []geometry.Point{args.From.point(), args.To.point()}

	case StepCircle:
		var args circleArgs
		if err := decodeArgs(value, &args); err != nil {
			return step, err
		}
		if args.Radius < 0 {
			return step, fmt.Errorf("radius cannot be negative, got %v", args.Radius)
		}
		center := args.Center.point()
		step.Run = domain.RunID(args.Run)
		step.Tool = domain.ToolCircle
		step.Style = domain.Style{Color: args.Color, StrokeWidth: args.StrokeWidth}
		step.Points = []geometry.Point{center, {X: center.X + args.Radius, Y: center.Y}}

	case StepDrag:
		var args dragArgs
		if err := decodeArgs(value, &args); err != nil {
			return step, err
		}
		if len(args.Points) < 2 {
			return step, fmt.Errorf("a drag needs at least 2 points, got %d", len(args.Points))
		}
		tool, err := domain.ParseTool(args.Tool)
		if err != nil {
			return step, err
		}
		step.Run = domain.RunID(args.Run)
		step.Tool = tool
		step.Style = domain.Style{Color: args.Color, StrokeWidth: args.StrokeWidth}
		for _, p := range args.Points {
			step.Points = append(step.Points, p.point())
		}

	default:
		return step, fmt.Errorf("unknown action %q", kind)
	}
	return step, nil
}

func decodeArgs(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Replay drives board through the script as if a user performed it.
func Replay(ctx context.Context, board *waypoint.Board, script *Script, logger *slog.Logger) error {
	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := replayStep(ctx, board, step, logger); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind, err)
		}
	}
	return nil
}

func replayStep(ctx context.Context, board *waypoint.Board, step Step, logger *slog.Logger) error {
	run := step.Run
	if run == "" {
		run = board.ActiveRun()
	}
	if !board.HasRun(run) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRun, run)
	}

	switch step.Kind {
	case StepBackground:
		board.SetBackground(ctx, step.Background)
	case StepRun:
		board.SelectRun(run)
	case StepUndo:
		board.Undo(ctx, run)
	case StepRedo:
		board.Redo(ctx, run)
	case StepClear:
		board.Clear(ctx, run)
	default:
		if board.Background() == nil {
			return errors.New("no background loaded; add a background step first")
		}
		if board.ActiveRun() != run {
			board.SelectRun(run)
		}
		opts := draw.Options{Tool: step.Tool, Style: step.Style}
		last := step.Points[len(step.Points)-1]
		board.PointerDown(step.Points[0], opts)
		for _, p := range step.Points[1:] {
			board.PointerMove(p)
		}
		if _, ok := board.PointerUp(ctx, last, opts); !ok {
			logger.Debug("gesture discarded", "run", run, "tool", step.Tool)
		}
	}
	return nil
}
