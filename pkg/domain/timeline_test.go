package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSegment_FreezesMeasurements(t *testing.T) {
	seg := domain.NewSegment(domain.Point{X: 0, Y: 0}, domain.Point{X: 500, Y: 0}, domain.DefaultStyle, 1000, 240)
	assert.InDelta(t, 120.0, seg.LengthCm, 1e-9)
	assert.InDelta(t, 0.0, seg.AngleDeg, 1e-9)
	assert.Equal(t, domain.DefaultStyle.Color, seg.Color)
	assert.Equal(t, domain.KindSegment, seg.Kind())
}

func TestNewCircle_Radius(t *testing.T) {
	c := domain.NewCircle(domain.Point{X: 10, Y: 10}, domain.Point{X: 13, Y: 14}, domain.Style{Color: "#000", StrokeWidth: 1})
	assert.InDelta(t, 5.0, c.Radius, 1e-9)
	assert.Equal(t, domain.KindCircle, c.Kind())
}

func TestTimeline_JSONKeepsFrozenFields(t *testing.T) {
	// Fields are written verbatim; decoding must not recompute them from the points.
	seg := domain.Segment{
		P1: domain.Point{X: 0, Y: 0}, P2: domain.Point{X: 10, Y: 0},
		Color: "#111", StrokeWidth: 2, LengthCm: 99.5, AngleDeg: 12,
	}
	circle := domain.Circle{Center: domain.Point{X: 5, Y: 5}, Radius: 3, Color: "#222", StrokeWidth: 1}
	tl := domain.Timeline{History: []domain.Batch{{seg}, {circle}}, Step: 1}

	data, err := json.Marshal(tl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"segment"`)
	assert.Contains(t, string(data), `"length_cm":99.5`)
	assert.Contains(t, string(data), `"kind":"circle"`)

	var back domain.Timeline
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tl, back)
	assert.Equal(t, []domain.Shape{seg}, back.Visible())
}

func TestTimeline_UnknownShapeKind(t *testing.T) {
	var tl domain.Timeline
	err := json.Unmarshal([]byte(`{"history":[[{"kind":"polygon"}]],"step":1}`), &tl)
	assert.ErrorIs(t, err, domain.ErrUnknownShape)
}

func TestTimeline_Validate(t *testing.T) {
	assert.NoError(t, domain.Timeline{}.Validate())
	assert.ErrorIs(t, domain.Timeline{Step: 1}.Validate(), domain.ErrInvalidTimeline)
	assert.ErrorIs(t, domain.Timeline{Step: -1}.Validate(), domain.ErrInvalidTimeline)
}

func TestTimeline_CloneIsIndependent(t *testing.T) {
	seg := domain.Segment{LengthCm: 1}
	tl := domain.Timeline{History: []domain.Batch{{seg}}, Step: 1}
	c := tl.Clone()
	c.History[0][0] = domain.Segment{LengthCm: 2}
	c.History = append(c.History, domain.Batch{seg})

	assert.Equal(t, domain.Segment{LengthCm: 1}, tl.History[0][0])
	assert.Len(t, tl.History, 1)
}

func TestRunIDs(t *testing.T) {
	assert.Equal(t, []domain.RunID{"run-1", "run-2", "run-3"}, domain.RunIDs("run", 3))
	assert.Empty(t, domain.RunIDs("run", 0))
}

func TestParseTool(t *testing.T) {
	for name, want := range map[string]domain.Tool{"": domain.ToolSegment, "segment": domain.ToolSegment, "circle": domain.ToolCircle} {
		got, err := domain.ParseTool(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := domain.ParseTool("spline")
	assert.ErrorContains(t, err, `unknown tool "spline"`)
}

func TestBackground_Validate(t *testing.T) {
	assert.NoError(t, domain.Background{WidthPx: 1000}.Validate())
	assert.NoError(t, domain.Background{WidthPx: domain.MaxBackgroundPx, HeightPx: domain.MaxBackgroundPx}.Validate())

	for _, bg := range []domain.Background{
		{},
		{WidthPx: -1},
		{WidthPx: 1e300, HeightPx: 10},
		{WidthPx: 1000, HeightPx: -1},
		{WidthPx: 1000, HeightPx: domain.MaxBackgroundPx + 1},
	} {
		assert.ErrorIs(t, bg.Validate(), domain.ErrInvalidBackground, "%+v", bg)
	}
}
