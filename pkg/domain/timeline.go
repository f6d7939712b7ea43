package domain

import (
	"encoding/json"
	"fmt"
)

// RunID names one independent drawing surface ("run-1", "run-2", ...).
type RunID string

// RunIDs builds the conventional run identifiers prefix-1..prefix-n.
func RunIDs(prefix string, n int) []RunID {
	ids := make([]RunID, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, RunID(fmt.Sprintf("%s-%d", prefix, i)))
	}
	return ids
}

// Batch is one completed user drawing action. It always holds exactly one shape
// today; the slice leaves room for multi-shape gestures.
type Batch []Shape

// UnmarshalJSON decodes the tagged shapes of a batch.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Batch, 0, len(raw))
	for _, r := range raw {
		s, err := UnmarshalShape(r)
		if err != nil {
			return err
		}
		out = append(out, s)
	}
	*b = out
	return nil
}

// Timeline is the history of one run: the committed batches in creation order and
// the undo/redo cursor. Batches at index >= Step are undone but still redoable.
type Timeline struct {
	History []Batch `json:"history"`
	Step    int     `json:"step"`
}

// Validate checks the cursor invariant 0 <= Step <= len(History).
func (t Timeline) Validate() error {
	if t.Step < 0 || t.Step > len(t.History) {
		return fmt.Errorf("%w: step %d outside [0, %d]", ErrInvalidTimeline, t.Step, len(t.History))
	}
	return nil
}

// Visible flattens History[:Step] in insertion order.
func (t Timeline) Visible() []Shape {
	var out []Shape
	for _, b := range t.History[:t.Step] {
		out = append(out, b...)
	}
	return out
}

// Clone returns a copy that shares no slices with t. Shapes are values, so
// copying the batch slices is enough.
func (t Timeline) Clone() Timeline {
	c := Timeline{Step: t.Step, History: make([]Batch, len(t.History))}
	for i, b := range t.History {
		c.History[i] = append(Batch(nil), b...)
	}
	return c
}

// Background is the reference image shared by every run. WidthPx is the width the
// surface is laid out at and the basis of every pixel to centimetre conversion.
type Background struct {
	Source   string  `json:"source" yaml:"source" mapstructure:"source"`
	WidthPx  float64 `json:"width_px" yaml:"width_px" mapstructure:"width_px"`
	HeightPx float64 `json:"height_px" yaml:"height_px" mapstructure:"height_px"`
}

// MaxBackgroundPx bounds both dimensions of a background.
const MaxBackgroundPx = 8192

// Validate checks that the background can be laid out: a positive width and a
// non-negative height, neither above MaxBackgroundPx.
func (b Background) Validate() error {
	if !(b.WidthPx > 0 && b.WidthPx <= MaxBackgroundPx) {
		return fmt.Errorf("%w: width_px must be in (0, %d], got %v", ErrInvalidBackground, MaxBackgroundPx, b.WidthPx)
	}
	if !(b.HeightPx >= 0 && b.HeightPx <= MaxBackgroundPx) {
		return fmt.Errorf("%w: height_px must be in [0, %d], got %v", ErrInvalidBackground, MaxBackgroundPx, b.HeightPx)
	}
	return nil
}

// Tool selects which primitive a drag produces.
type Tool string

const (
	ToolSegment Tool = "segment"
	ToolCircle  Tool = "circle"
)

// ParseTool maps a tool name to a Tool. The empty name is the segment tool.
func ParseTool(name string) (Tool, error) {
	switch t := Tool(name); t {
	case "":
		return ToolSegment, nil
	case ToolSegment, ToolCircle:
		return t, nil
	}
	return "", fmt.Errorf("unknown tool %q", name)
}
