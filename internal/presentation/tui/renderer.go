package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/aretw0/waypoint/pkg/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// InstructionsMarkdown lays out the program of a run as a markdown table followed
// by its summary.
func InstructionsMarkdown(run domain.RunID, instructions []domain.Instruction, sum compiler.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", run)
	if len(instructions) == 0 {
		sb.WriteString("_No instructions._\n")
		return sb.String()
	}

	sb.WriteString("| Step | Action | Value |\n")
	sb.WriteString("|-----:|--------|------:|\n")
	for _, ins := range instructions {
		fmt.Fprintf(&sb, "| %d | %s | %s |\n", ins.Step, ins.Action, ins.Value)
	}
	fmt.Fprintf(&sb, "\n**%s** in %d moves, %d turns, net rotation %s.\n",
		compiler.FormatCm(sum.DistanceCm), sum.Moves, sum.Turns, compiler.FormatDeg(sum.NetRotationDeg))
	return sb.String()
}

// Turn colours.
const (
	colorLeft  = "#1565c0"
	colorRight = "#e53935"
)

// FormatInstruction prints one instruction as a plain line, tinting turns when the
// profile supports colour.
func FormatInstruction(p termenv.Profile, ins domain.Instruction) string {
	line := fmt.Sprintf("%3d. %s %s", ins.Step, ins.Action, ins.Value)
	switch ins.Action {
	case domain.ActionTurnLeft:
		return termenv.String(line).Foreground(p.Color(colorLeft)).String()
	case domain.ActionTurnRight:
		return termenv.String(line).Foreground(p.Color(colorRight)).String()
	}
	return line
}
