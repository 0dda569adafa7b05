package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// painter draws anti-aliased shapes and text onto a surface in surface-local
// coordinates (0,0 is the top-left of dst.Bounds()).
type painter struct {
	dst    draw.Image
	bounds image.Rectangle
	ras    *vector.Rasterizer
}

func newPainter(dst draw.Image) *painter {
	b := dst.Bounds()
	return &painter{
		dst:    dst,
		bounds: b,
		ras:    vector.NewRasterizer(b.Dx(), b.Dy()),
	}
}

// clear resets every pixel of the surface to transparent.
func (p *painter) clear() {
	draw.Draw(p.dst, p.bounds, image.Transparent, image.Point{}, draw.Src)
}

// fillPath paints the current rasterizer path with c, then resets it.
func (p *painter) fillPath(c color.Color) {
	p.ras.Draw(p.dst, p.bounds, image.NewUniform(c), image.Point{})
	p.ras.Reset(p.bounds.Dx(), p.bounds.Dy())
}

func (p *painter) polygon(pts ...Point) {
	if len(pts) < 3 {
		return
	}
	p.ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		p.ras.LineTo(float32(pt.X), float32(pt.Y))
	}
	p.ras.ClosePath()
}

// strokeLine draws a straight segment of the given width as a filled quad.
func (p *painter) strokeLine(a, b Point, width float64, c color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	hw := width / 2
	nx, ny := -dy/length*hw, dx/length*hw
	p.polygon(
		Point{a.X + nx, a.Y + ny},
		Point{b.X + nx, b.Y + ny},
		Point{b.X - nx, b.Y - ny},
		Point{a.X - nx, a.Y - ny},
	)
	p.fillPath(c)
}

// fillCircle approximates a disc with a 24-gon.
func (p *painter) fillCircle(center Point, r float64, c color.Color) {
	if r <= 0 {
		return
	}
	const segments = 24
	pts := make([]Point, segments)
	for i := range pts {
		ang := float64(i) / segments * 2 * math.Pi
		pts[i] = Point{center.X + r*math.Cos(ang), center.Y + r*math.Sin(ang)}
	}
	p.polygon(pts...)
	p.fillPath(c)
}

// fillRect fills an axis-aligned rectangle; negative sizes extend up/left.
func (p *painter) fillRect(r Rect, c color.Color) {
	r = r.canon()
	if r.W == 0 || r.H == 0 {
		return
	}
	p.polygon(
		Point{r.X, r.Y},
		Point{r.X + r.W, r.Y},
		Point{r.X + r.W, r.Y + r.H},
		Point{r.X, r.Y + r.H},
	)
	p.fillPath(c)
}

// text draws s with its baseline starting at (x, y).
func (p *painter) text(s string, x, y float64, face font.Face, c color.Color) {
	d := &font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6((x + float64(p.bounds.Min.X)) * 64),
			Y: fixed.Int26_6((y + float64(p.bounds.Min.Y)) * 64),
		},
	}
	d.DrawString(s)
}

// rotatedText draws s with its baseline origin at (x, y), rotated by angle
// radians (positive is clockwise on a y-down surface).
func (p *painter) rotatedText(s string, x, y, angle float64, face font.Face, c color.Color) {
	if s == "" {
		return
	}
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	tw := font.MeasureString(face, s).Ceil()

	// Render upright into a scratch buffer with a 1px margin.
	const margin = 1
	scratch := image.NewRGBA(image.Rect(0, 0, tw+2*margin, ascent+descent+2*margin))
	d := &font.Drawer{
		Dst:  scratch,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(margin, margin+ascent),
	}
	d.DrawString(s)

	cos, sin := math.Cos(angle), math.Sin(angle)
	ox, oy := -float64(margin), -float64(margin+ascent)
	tx := x + float64(p.bounds.Min.X)
	ty := y + float64(p.bounds.Min.Y)
	s2d := f64.Aff3{
		cos, -sin, cos*ox - sin*oy + tx,
		sin, cos, sin*ox + cos*oy + ty,
	}
	xdraw.BiLinear.Transform(p.dst, s2d, scratch, scratch.Bounds(), xdraw.Over, nil)
}

// --- Colour parsing ---

// ParseHex parses "#rgb" or "#rrggbb" (the leading # is optional).
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// MustHex is ParseHex for compile-time constants; it panics on bad input.
func MustHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
