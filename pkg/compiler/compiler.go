// Package compiler turns the traced path of a run into a motion program.
//
// The compiler walks the visible segments in creation order, emitting a
// "move forward" for every segment and a "turn left/right" between consecutive
// segments whose headings differ by more than the turn threshold. Circles carry no
// direction and are skipped. Output is recomputed on every call, so it always
// reflects the current undo/redo cursor.
package compiler

import (
	"fmt"
	"math"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/geometry"
)

type config struct {
	turnThresholdDeg float64
}

// Option configures compilation.
type Option func(*config)

// WithTurnThreshold sets the turn magnitude (degrees) at or below which no turn is
// emitted. Default geometry.DefaultTurnThresholdDeg.
func WithTurnThreshold(deg float64) Option {
	return func(c *config) {
		c.turnThresholdDeg = deg
	}
}

// Compile builds the instruction list for shapes.
func Compile(shapes []domain.Shape, opts ...Option) []domain.Instruction {
	cfg := config{turnThresholdDeg: geometry.DefaultTurnThresholdDeg}
	for _, opt := range opts {
		opt(&cfg)
	}

	segs := domain.Segments(shapes)
	result := make([]domain.Instruction, 0, 2*len(segs))
	step := 1
	for i, s := range segs {
		result = append(result, domain.Instruction{
			Step:   step,
			Action: domain.ActionMoveForward,
			Value:  FormatCm(s.LengthCm),
		})
		step++

		if i == len(segs)-1 {
			break
		}
		turn := geometry.TurnBetween(s, segs[i+1])
		if !turn.Significant(cfg.turnThresholdDeg) {
			continue
		}
		result = append(result, domain.Instruction{
			Step:   step,
			Action: TurnAction(turn.Direction),
			Value:  FormatDeg(turn.MagnitudeDeg),
		})
		step++
	}
	return result
}

// TurnAction maps a rotation direction to its instruction verb.
func TurnAction(d geometry.Direction) domain.Action {
	if d == geometry.Right {
		return domain.ActionTurnRight
	}
	return domain.ActionTurnLeft
}

// FormatCm renders a distance with one decimal, e.g. "120.0cm".
func FormatCm(cm float64) string {
	return fmt.Sprintf("%.1fcm", cm)
}

// FormatDeg renders an angle rounded to whole degrees, e.g. "90°".
func FormatDeg(deg float64) string {
	return fmt.Sprintf("%d°", int(math.Round(deg)))
}

// Summary aggregates a compiled program.
type Summary struct {
	DistanceCm     float64 `json:"distance_cm"`
	Moves          int     `json:"moves"`
	Turns          int     `json:"turns"`
	NetRotationDeg float64 `json:"net_rotation_deg"` // right is positive
}

// Summarize totals the moves and turns of shapes, using the same rules as Compile.
func Summarize(shapes []domain.Shape, opts ...Option) Summary {
	cfg := config{turnThresholdDeg: geometry.DefaultTurnThresholdDeg}
	for _, opt := range opts {
		opt(&cfg)
	}

	var sum Summary
	segs := domain.Segments(shapes)
	for i, s := range segs {
		sum.Moves++
		sum.DistanceCm += s.LengthCm
		if i == len(segs)-1 {
			break
		}
		turn := geometry.TurnBetween(s, segs[i+1])
		if !turn.Significant(cfg.turnThresholdDeg) {
			continue
		}
		sum.Turns++
		if turn.Direction == geometry.Right {
			sum.NetRotationDeg += turn.MagnitudeDeg
		} else {
			sum.NetRotationDeg -= turn.MagnitudeDeg
		}
	}
	return sum
}
