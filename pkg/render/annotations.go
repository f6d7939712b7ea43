package render

import (
	"fmt"

	"github.com/aretw0/waypoint/pkg/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/geometry"
)

// AnnotationKind tells what an on-shape label measures.
type AnnotationKind string

const (
	AnnotateLength AnnotationKind = "length"
	AnnotateTurn   AnnotationKind = "turn"
	AnnotateRadius AnnotationKind = "radius"
)

// Annotation is a label painted next to a shape.
type Annotation struct {
	Kind AnnotationKind `json:"kind"`
	Text string         `json:"text"`
	At   geometry.Point `json:"at"`
}

// Annotations derives the labels for shapes: each segment's length at its midpoint,
// each significant turn at the joint, each circle's radius at its centre. Text is
// produced by the compiler's formatters from the frozen segment fields, so labels
// always agree with the compiled instructions.
func Annotations(shapes []domain.Shape, surfaceWidthPx, referenceWidthCm, turnThresholdDeg float64) []Annotation {
	var out []Annotation
	for _, s := range shapes {
		switch v := s.(type) {
		case domain.Segment:
			out = append(out, Annotation{
				Kind: AnnotateLength,
				Text: compiler.FormatCm(v.LengthCm),
				At:   v.P1.Mid(v.P2),
			})
		case domain.Circle:
			out = append(out, Annotation{
				Kind: AnnotateRadius,
				Text: "r " + compiler.FormatCm(geometry.PixelsToCm(v.Radius, surfaceWidthPx, referenceWidthCm)),
				At:   v.Center,
			})
		}
	}

	segs := domain.Segments(shapes)
	for i := 0; i+1 < len(segs); i++ {
		turn := geometry.TurnBetween(segs[i], segs[i+1])
		if !turn.Significant(turnThresholdDeg) {
			continue
		}
		out = append(out, Annotation{
			Kind: AnnotateTurn,
			Text: fmt.Sprintf("%s %s", compiler.FormatDeg(turn.MagnitudeDeg), turn.Direction),
			At:   segs[i].P2,
		})
	}
	return out
}
