package domain

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/waypoint/pkg/geometry"
)

// Point is a position in surface pixel space.
type Point = geometry.Point

// ShapeKind discriminates the Shape variants on the wire.
type ShapeKind string

const (
	KindSegment ShapeKind = "segment"
	KindCircle  ShapeKind = "circle"
)

// Shape is one committed drawing primitive: a Segment or a Circle.
// The set of variants is closed.
type Shape interface {
	Kind() ShapeKind
	isShape()
}

// Style is the stroke applied to a new shape.
type Style struct {
	Color       string  `json:"color" yaml:"color" mapstructure:"color"`
	StrokeWidth float64 `json:"stroke_width" yaml:"stroke_width" mapstructure:"stroke_width"`
}

// DefaultStyle is the stroke used when the caller does not pick one.
var DefaultStyle = Style{Color: "#e53935", StrokeWidth: 3}

// Segment is a straight traced move. LengthCm and AngleDeg are computed once by
// NewSegment and are never re-derived from the pixel coordinates.
type Segment struct {
	P1          Point   `json:"p1"`
	P2          Point   `json:"p2"`
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"stroke_width"`
	LengthCm    float64 `json:"length_cm"`
	AngleDeg    float64 `json:"angle_deg"`
}

// Circle marks an area of interest. It carries no direction and is ignored by the
// instruction compiler.
type Circle struct {
	Center      Point   `json:"center"`
	Radius      float64 `json:"radius"`
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"stroke_width"`
}

func (Segment) Kind() ShapeKind { return KindSegment }
func (Segment) isShape()        {}
func (Circle) Kind() ShapeKind  { return KindCircle }
func (Circle) isShape()         {}

// Endpoints implements geometry.Directed.
func (s Segment) Endpoints() (Point, Point) { return s.P1, s.P2 }

// Heading implements geometry.Directed using the frozen angle.
func (s Segment) Heading() float64 { return s.AngleDeg }

// NewSegment builds a segment from p1 to p2 and freezes its physical length and
// heading. It performs no validation: degenerate input must be rejected upstream.
func NewSegment(p1, p2 Point, style Style, surfaceWidthPx, referenceWidthCm float64) Segment {
	return Segment{
		P1:          p1,
		P2:          p2,
		Color:       style.Color,
		StrokeWidth: style.StrokeWidth,
		LengthCm:    geometry.PixelsToCm(geometry.Distance(p1, p2), surfaceWidthPx, referenceWidthCm),
		AngleDeg:    geometry.SegmentAngleDeg(p1, p2),
	}
}

// NewCircle builds a circle centred on center passing through edge.
func NewCircle(center, edge Point, style Style) Circle {
	return Circle{
		Center:      center,
		Radius:      geometry.Distance(center, edge),
		Color:       style.Color,
		StrokeWidth: style.StrokeWidth,
	}
}

// Segments filters shapes down to segments, keeping their order.
func Segments(shapes []Shape) []Segment {
	out := make([]Segment, 0, len(shapes))
	for _, s := range shapes {
		if seg, ok := s.(Segment); ok {
			out = append(out, seg)
		}
	}
	return out
}

// MarshalJSON writes the segment with its kind discriminator.
func (s Segment) MarshalJSON() ([]byte, error) {
	type plain Segment
	return json.Marshal(struct {
		Kind ShapeKind `json:"kind"`
		plain
	}{KindSegment, plain(s)})
}

// MarshalJSON writes the circle with its kind discriminator.
func (c Circle) MarshalJSON() ([]byte, error) {
	type plain Circle
	return json.Marshal(struct {
		Kind ShapeKind `json:"kind"`
		plain
	}{KindCircle, plain(c)})
}

// UnmarshalShape decodes one tagged shape object.
func UnmarshalShape(data []byte) (Shape, error) {
	var head struct {
		Kind ShapeKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read shape kind: %w", err)
	}

	switch head.Kind {
	case KindSegment:
		type plain Segment
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode segment: %w", err)
		}
		return Segment(p), nil
	case KindCircle:
		type plain Circle
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode circle: %w", err)
		}
		return Circle(p), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, head.Kind)
	}
}
