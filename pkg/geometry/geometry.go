package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoLayout is the panic value used when a conversion is requested before the
// surface has a positive pixel width.
var ErrNoLayout = errors.New("surface has no layout")

// DefaultTurnThresholdDeg is the turn magnitude at or below which two consecutive
// segments are treated as collinear.
const DefaultTurnThresholdDeg = 1.0

// Point is a position in surface pixel space. Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns the vector p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mid returns the midpoint between p and q.
func (p Point) Mid(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Equal reports whether p and q are the exact same pixel position.
func (p Point) Equal(q Point) bool {
	return p.X == q.X && p.Y == q.Y
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Cross returns the z component of the 2-D cross product a × b.
func Cross(a, b Point) float64 {
	return a.X*b.Y - a.Y*b.X
}

// PixelsToCm scales a pixel length to centimetres, given the surface width in
// pixels and the physical width (cm) the reference image spans.
// It panics if surfaceWidthPx is not positive.
func PixelsToCm(pixelLength, surfaceWidthPx, referenceWidthCm float64) float64 {
	if !(surfaceWidthPx > 0) {
		panic(fmt.Errorf("%w: width %v", ErrNoLayout, surfaceWidthPx))
	}
	return pixelLength / surfaceWidthPx * referenceWidthCm
}

// SegmentAngleDeg returns the direction from p1 to p2 in degrees, in (-180, 180].
func SegmentAngleDeg(p1, p2 Point) float64 {
	deg := math.Atan2(p2.Y-p1.Y, p2.X-p1.X) * 180 / math.Pi
	if deg <= -180 {
		deg += 360
	}
	return deg
}

// AngularDistance returns the absolute shortest difference between two headings,
// in [0, 180].
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
