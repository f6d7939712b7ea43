package geometry_test

import (
	"errors"
	"math"
	"testing"

	"github.com/aretw0/waypoint/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec struct {
	from, to geometry.Point
}

func (v vec) Endpoints() (geometry.Point, geometry.Point) { return v.from, v.to }
func (v vec) Heading() float64                            { return geometry.SegmentAngleDeg(v.from, v.to) }

func TestPixelsToCm(t *testing.T) {
	// A segment spanning the full surface maps to the reference width exactly.
	for _, w := range []float64{1, 640, 1000, 1333.5} {
		assert.Equal(t, 240.0, geometry.PixelsToCm(w, w, 240))
	}
	assert.InDelta(t, 120.0, geometry.PixelsToCm(500, 1000, 240), 1e-9)
	assert.InDelta(t, 72.0, geometry.PixelsToCm(300, 1000, 240), 1e-9)
}

func TestPixelsToCm_NoLayoutPanics(t *testing.T) {
	for _, w := range []float64{0, -10, math.NaN()} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "width %v should panic", w)
				err, ok := r.(error)
				require.True(t, ok)
				assert.True(t, errors.Is(err, geometry.ErrNoLayout))
			}()
			geometry.PixelsToCm(10, w, 240)
		}()
	}
}

func TestSegmentAngleDeg(t *testing.T) {
	tests := []struct {
		name string
		p2   geometry.Point
		want float64
	}{
		{"east", geometry.Point{X: 10}, 0},
		{"south (screen down)", geometry.Point{Y: 10}, 90},
		{"north (screen up)", geometry.Point{Y: -10}, -90},
		{"west folds to +180", geometry.Point{X: -10}, 180},
		{"south-east", geometry.Point{X: 10, Y: 10}, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, geometry.SegmentAngleDeg(geometry.Point{}, tt.p2), 1e-9)
		})
	}
}

func TestAngularDistance(t *testing.T) {
	assert.InDelta(t, 90.0, geometry.AngularDistance(0, 90), 1e-9)
	assert.InDelta(t, 20.0, geometry.AngularDistance(170, -170), 1e-9)
	assert.InDelta(t, 180.0, geometry.AngularDistance(0, 180), 1e-9)
	assert.InDelta(t, 0.5, geometry.AngularDistance(10, 10.5), 1e-9)
}

func TestTurnBetween_ScreenConvention(t *testing.T) {
	// East then south on a Y-down surface is a right turn.
	a := vec{geometry.Point{X: 0, Y: 0}, geometry.Point{X: 500, Y: 0}}
	b := vec{geometry.Point{X: 500, Y: 0}, geometry.Point{X: 500, Y: 300}}

	turn := geometry.TurnBetween(a, b)
	assert.InDelta(t, 90.0, turn.MagnitudeDeg, 1e-9)
	assert.Equal(t, geometry.Right, turn.Direction)

	// East then north is a left turn.
	c := vec{geometry.Point{X: 500, Y: 0}, geometry.Point{X: 500, Y: -300}}
	turn = geometry.TurnBetween(a, c)
	assert.InDelta(t, 90.0, turn.MagnitudeDeg, 1e-9)
	assert.Equal(t, geometry.Left, turn.Direction)
}

func TestTurn_Significant(t *testing.T) {
	assert.False(t, geometry.Turn{MagnitudeDeg: 0.5}.Significant(geometry.DefaultTurnThresholdDeg))
	assert.False(t, geometry.Turn{MagnitudeDeg: 1}.Significant(geometry.DefaultTurnThresholdDeg))
	assert.True(t, geometry.Turn{MagnitudeDeg: 1.01}.Significant(geometry.DefaultTurnThresholdDeg))
}
