// Package render paints the shapes of a run onto a raster image.
//
// It has no state of its own: every frame is rebuilt from the visible shapes and
// the optional in-progress preview.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/geometry"
)

// MaxFramePixels bounds the area of a painted frame.
const MaxFramePixels = 1 << 26

// ErrFrameTooLarge is returned when a background, once scaled, exceeds MaxFramePixels.
var ErrFrameTooLarge = errors.New("frame too large")

var (
	colorPaper = color.RGBA{250, 250, 250, 255}
	colorLabel = color.RGBA{33, 33, 33, 255}
	colorTurn  = color.RGBA{21, 101, 192, 255} // #1565c0
)

// Painter rasterizes shapes. The zero value is not usable; build it with NewPainter.
type Painter struct {
	scale            float64
	annotate         bool
	paper            color.Color
	referenceWidthCm float64
	turnThresholdDeg float64
}

// PainterOption configures a Painter.
type PainterOption func(*Painter)

// WithScale multiplies the output resolution.
func WithScale(scale float64) PainterOption {
	return func(p *Painter) {
		if scale > 0 {
			p.scale = scale
		}
	}
}

// WithAnnotations toggles the length/turn labels.
func WithAnnotations(on bool) PainterOption {
	return func(p *Painter) {
		p.annotate = on
	}
}

// WithPaper sets the fill colour used under the shapes.
func WithPaper(c color.Color) PainterOption {
	return func(p *Painter) {
		p.paper = c
	}
}

// WithTurnThreshold sets the minimum turn (degrees) that gets a label.
func WithTurnThreshold(deg float64) PainterOption {
	return func(p *Painter) {
		p.turnThresholdDeg = deg
	}
}

// NewPainter creates a painter for surfaces spanning referenceWidthCm.
func NewPainter(referenceWidthCm float64, opts ...PainterOption) *Painter {
	p := &Painter{
		scale:            1,
		annotate:         true,
		paper:            colorPaper,
		referenceWidthCm: referenceWidthCm,
		turnThresholdDeg: geometry.DefaultTurnThresholdDeg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Frame returns the output bounds for a background.
// A background without a height is given a 2:1 aspect.
func (p *Painter) Frame(bg domain.Background) (image.Rectangle, error) {
	if !(bg.WidthPx > 0) {
		return image.Rectangle{}, fmt.Errorf("%w: background width %v", geometry.ErrNoLayout, bg.WidthPx)
	}
	h := bg.HeightPx
	if h <= 0 {
		h = bg.WidthPx / 2
	}
	w, h := math.Ceil(bg.WidthPx*p.scale), math.Ceil(h*p.scale)
	if !(w*h <= MaxFramePixels) {
		return image.Rectangle{}, fmt.Errorf("%w: %.0fx%.0f exceeds %d pixels", ErrFrameTooLarge, w, h, MaxFramePixels)
	}
	return image.Rect(0, 0, int(w), int(h)), nil
}

// Paint draws shapes and, when non-nil, the preview shape onto a new image laid out
// for bg. It panics if Frame rejects bg.
func (p *Painter) Paint(bg domain.Background, shapes []domain.Shape, preview domain.Shape) *image.RGBA {
	frame, err := p.Frame(bg)
	if err != nil {
		panic(err)
	}

	img := image.NewRGBA(frame)
	draw.Draw(img, img.Bounds(), image.NewUniform(p.paper), image.Point{}, draw.Src)

	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	for _, s := range shapes {
		p.paintShape(z, img, s, 255)
	}
	if preview != nil {
		p.paintShape(z, img, preview, 128)
	}

	if p.annotate {
		all := shapes
		if preview != nil {
			all = append(append([]domain.Shape(nil), shapes...), preview)
		}
		for _, a := range Annotations(all, bg.WidthPx, p.referenceWidthCm, p.turnThresholdDeg) {
			col := colorLabel
			if a.Kind == AnnotateTurn {
				col = colorTurn
			}
			p.label(img, a, col)
		}
	}
	return img
}

func (p *Painter) paintShape(z *vector.Rasterizer, img *image.RGBA, s domain.Shape, alpha uint8) {
	b := img.Bounds()
	z.Reset(b.Dx(), b.Dy())

	var col color.RGBA
	switch v := s.(type) {
	case domain.Segment:
		col = ParseColor(v.Color)
		p.strokeLine(z, v.P1, v.P2, v.StrokeWidth)
	case domain.Circle:
		col = ParseColor(v.Color)
		p.strokeCircle(z, v.Center, v.Radius, v.StrokeWidth)
	default:
		return
	}
	col = withAlpha(col, alpha)
	z.Draw(img, b, image.NewUniform(col), image.Point{})
}

// strokeLine adds a quad of the given width around a-b.
func (p *Painter) strokeLine(z *vector.Rasterizer, a, b geometry.Point, width float64) {
	length := geometry.Distance(a, b)
	if length == 0 {
		return
	}
	half := math.Max(width, 1) * p.scale / 2
	nx := -(b.Y - a.Y) / length * half
	ny := (b.X - a.X) / length * half

	ax, ay := a.X*p.scale, a.Y*p.scale
	bx, by := b.X*p.scale, b.Y*p.scale
	z.MoveTo(float32(ax+nx), float32(ay+ny))
	z.LineTo(float32(bx+nx), float32(by+ny))
	z.LineTo(float32(bx-nx), float32(by-ny))
	z.LineTo(float32(ax-nx), float32(ay-ny))
	z.ClosePath()
}

// strokeCircle adds a ring: the outer contour one way, the inner contour the other,
// so the inside stays empty.
func (p *Painter) strokeCircle(z *vector.Rasterizer, c geometry.Point, r, width float64) {
	half := math.Max(width, 1) / 2
	outer := (r + half) * p.scale
	inner := math.Max(r-half, 0) * p.scale
	cx, cy := c.X*p.scale, c.Y*p.scale

	const steps = 96
	z.MoveTo(float32(cx+outer), float32(cy))
	for i := 1; i <= steps; i++ {
		t := 2 * math.Pi * float64(i) / steps
		z.LineTo(float32(cx+outer*math.Cos(t)), float32(cy+outer*math.Sin(t)))
	}
	z.ClosePath()
	if inner == 0 {
		return
	}
	z.MoveTo(float32(cx+inner), float32(cy))
	for i := 1; i <= steps; i++ {
		t := -2 * math.Pi * float64(i) / steps
		z.LineTo(float32(cx+inner*math.Cos(t)), float32(cy+inner*math.Sin(t)))
	}
	z.ClosePath()
}

func (p *Painter) label(img *image.RGBA, a Annotation, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(a.At.X*p.scale)+4, int(a.At.Y*p.scale)-4),
	}
	d.DrawString(a.Text)
}

// Thumbnail scales img down to at most maxWidth pixels wide, keeping the aspect.
func Thumbnail(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := int(math.Max(1, math.Round(float64(b.Dy())*float64(maxWidth)/float64(b.Dx()))))
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// ParseColor reads "#rgb" or "#rrggbb". Anything else is black.
func ParseColor(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// withAlpha returns c with premultiplied alpha a.
func withAlpha(c color.RGBA, a uint8) color.RGBA {
	if a == 255 {
		return c
	}
	f := float64(a) / 255
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: a,
	}
}
