package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint/pkg/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
)

var program = []domain.Instruction{
	{Step: 1, Action: domain.ActionMoveForward, Value: "120.0cm"},
	{Step: 2, Action: domain.ActionTurnRight, Value: "90°"},
	{Step: 3, Action: domain.ActionMoveForward, Value: "72.0cm"},
}

func TestInstructionsMarkdown(t *testing.T) {
	md := InstructionsMarkdown("run-1", program, compiler.Summary{DistanceCm: 192, Moves: 2, Turns: 1, NetRotationDeg: 90})

	assert.True(t, strings.HasPrefix(md, "## run-1\n"))
	assert.Contains(t, md, "| 1 | move forward | 120.0cm |")
	assert.Contains(t, md, "| 2 | turn right | 90° |")
	assert.Contains(t, md, "**192.0cm** in 2 moves, 1 turns, net rotation 90°.")

	empty := InstructionsMarkdown("run-2", nil, compiler.Summary{})
	assert.Contains(t, empty, "_No instructions._")
	assert.NotContains(t, empty, "| Step |")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)
	out, err := render(InstructionsMarkdown("run-1", program, compiler.Summary{}))
	require.NoError(t, err)
	assert.Contains(t, out, "move forward")
	assert.Contains(t, out, "120.0cm")
}

func TestFormatInstruction(t *testing.T) {
	assert.Equal(t, "  1. move forward 120.0cm", FormatInstruction(termenv.Ascii, program[0]))
	assert.Equal(t, "  2. turn right 90°", FormatInstruction(termenv.Ascii, program[1]))

	colored := FormatInstruction(termenv.TrueColor, program[1])
	assert.Contains(t, colored, "turn right 90°")
	assert.NotEqual(t, "  2. turn right 90°", colored)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Greater(t, strings.Count(buf.String(), "\n"), 5)
}
