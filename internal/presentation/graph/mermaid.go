// Package graph exports a compiled motion program as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

// GraphOverlay marks execution progress on the flowchart.
type GraphOverlay struct {
	// CompletedSteps are drawn as visited: steps 1..CompletedSteps.
	CompletedSteps int
	// CurrentStep is highlighted when > 0.
	CurrentStep int
}

// GenerateMermaid produces a Mermaid flowchart of the instructions of run.
// It applies semantic styling:
// - Start/End: ((Circle))
// - Move: [Rectangle]
// - Turn: {{Hexagon}}, tinted by direction
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(run domain.RunID, instructions []domain.Instruction, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	startID := "start"
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", startID, escapeLabel(string(run))))

	prev := startID
	var lefts, rights []string
	for _, ins := range instructions {
		id := stepID(ins.Step)
		label := escapeLabel(fmt.Sprintf("%d. %s %s", ins.Step, ins.Action, ins.Value))

		opener, closer := "[", "]"
		switch ins.Action {
		case domain.ActionTurnLeft:
			opener, closer = "{{", "}}"
			lefts = append(lefts, id)
		case domain.ActionTurnRight:
			opener, closer = "{{", "}}"
			rights = append(rights, id)
		}

		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, id))
		prev = id
	}

	sb.WriteString("    finish((\"end\"))\n")
	sb.WriteString(fmt.Sprintf("    %s --> finish\n", prev))

	if len(lefts)+len(rights) > 0 {
		sb.WriteString("\n    %% Turn Styles\n")
		sb.WriteString("    classDef left fill:#e8f5e9,stroke:#2e7d32,color:#000;\n")
		sb.WriteString("    classDef right fill:#e3f2fd,stroke:#1565c0,color:#000;\n")
		if len(lefts) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s left;\n", strings.Join(lefts, ",")))
		}
		if len(rights) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s right;\n", strings.Join(rights, ",")))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		var visited []string
		for _, ins := range instructions {
			if ins.Step <= overlay.CompletedSteps {
				visited = append(visited, stepID(ins.Step))
			}
		}
		if len(visited) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", strings.Join(visited, ",")))
		}
		if overlay.CurrentStep > 0 && overlay.CurrentStep <= len(instructions) {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", stepID(overlay.CurrentStep)))
		}
	}

	return sb.String()
}

func stepID(step int) string {
	return fmt.Sprintf("s%d", step)
}

// escapeLabel keeps double quotes from closing the Mermaid label.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
