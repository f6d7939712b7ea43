package geometry

// Direction is the rotational sense of a turn when walking a path.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// Directed is anything with a direction of travel: two endpoints and a heading
// fixed at creation time.
type Directed interface {
	Endpoints() (from, to Point)
	Heading() float64
}

// Turn describes the rotation needed to go from one directed segment to the next.
type Turn struct {
	MagnitudeDeg float64   `json:"magnitude_deg"`
	Direction    Direction `json:"direction"`
}

// Significant reports whether the turn is larger than thresholdDeg.
func (t Turn) Significant(thresholdDeg float64) bool {
	return t.MagnitudeDeg > thresholdDeg
}

// TurnBetween computes the turn from prev to next.
//
// The magnitude comes from the stored headings, so it never drifts from values
// captured at creation. The direction is the sign of prev × next: on a surface
// where Y grows downward a positive cross product is a right turn.
func TurnBetween(prev, next Directed) Turn {
	pa, pb := prev.Endpoints()
	na, nb := next.Endpoints()

	dir := Left
	if Cross(pb.Sub(pa), nb.Sub(na)) > 0 {
		dir = Right
	}
	return Turn{
		MagnitudeDeg: AngularDistance(prev.Heading(), next.Heading()),
		Direction:    dir,
	}
}
