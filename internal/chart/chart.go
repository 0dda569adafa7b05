package chart

import (
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
)

// Fixed geometry of the two chart types, in surface pixels.
const (
	linePadding    = 54
	lineGuideCount = 5
	lineStroke     = 3.0
	lineMarker     = 3.5
	lineTickInset  = 14  // tick label baseline distance from the bottom edge
	lineTickShift  = 6   // tick label left shift from its point
	lineTickDense  = 6   // at or below this many labels every tick is labelled
	lineTickAngle  = -math.Pi / 8

	barPadding    = 68
	barGap        = 28
	barLabelInset = 20 // bar label baseline distance from the bottom edge
)

var (
	guideColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 26} // 10% white
	tickColor     = color.RGBA{R: 0x9a, G: 0xa7, B: 0xb2, A: 0xff}
	barLabelColor = color.RGBA{R: 0xcf, G: 0xe3, B: 0xea, A: 0xff}
	defaultColor  = color.RGBA{R: 0x00, G: 0xbc, B: 0xd4, A: 0xff}

	tickFace     font.Face = basicfont.Face7x13
	barLabelFace font.Face = inconsolata.Bold8x16
)

// Options styles a chart.
type Options struct {
	Color  color.Color   // stroke colour for lines, shared fill for bars
	Colors []color.Color // optional per-bar fill; nil entries fall back to Color
}

func (o Options) color() color.Color {
	if o.Color == nil {
		return defaultColor
	}
	return o.Color
}

func (o Options) barColor(i int) color.Color {
	if i < len(o.Colors) && o.Colors[i] != nil {
		return o.Colors[i]
	}
	return o.color()
}

// Point is a position in surface-local pixels.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in surface-local pixels.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) canon() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// --- Line chart ---

// Tick is one x-axis label of a line chart.
type Tick struct {
	Index int
	Label string
	X, Y  float64 // baseline origin before rotation
}

// LineGeometry is everything DrawLineChart computes before touching pixels.
type LineGeometry struct {
	MaxVal float64
	MinVal float64
	Range  float64 // always >= 1
	StepX  float64
	Guides []float64 // y of each horizontal guide line
	Points []Point
	Ticks  []Tick
}

// LineLayout scales values into a width x height surface.
// The max(..,1) / max(1,..) floors keep empty and constant series drawable.
func LineLayout(width, height int, labels []string, values []float64) LineGeometry {
	w, h := float64(width), float64(height)
	p := float64(linePadding)

	maxVal, minVal := 1.0, 0.0
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
		minVal = math.Min(minVal, v)
	}
	g := LineGeometry{
		MaxVal: maxVal,
		MinVal: minVal,
		Range:  math.Max(1, maxVal-minVal),
	}

	for i := 0; i < lineGuideCount; i++ {
		g.Guides = append(g.Guides, p+((h-p*2)/float64(lineGuideCount-1))*float64(i))
	}

	g.StepX = (w - p*2) / math.Max(1, float64(len(values)-1))
	g.Points = make([]Point, len(values))
	for i, v := range values {
		g.Points[i] = Point{
			X: p + float64(i)*g.StepX,
			Y: h - p - ((v-minVal)/g.Range)*(h-p*2),
		}
	}

	for i, label := range labels {
		if i%2 == 0 || len(labels) <= lineTickDense {
			g.Ticks = append(g.Ticks, Tick{
				Index: i,
				Label: label,
				X:     p + float64(i)*g.StepX,
				Y:     h - lineTickInset,
			})
		}
	}
	return g
}

// DrawLineChart clears dst and draws guide lines, the series polyline, point
// markers and rotated x-axis labels.
func DrawLineChart(dst draw.Image, labels []string, values []float64, opts Options) {
	b := dst.Bounds()
	g := LineLayout(b.Dx(), b.Dy(), labels, values)
	p := newPainter(dst)
	p.clear()

	left := float64(linePadding)
	right := float64(b.Dx() - linePadding)
	for _, y := range g.Guides {
		p.strokeLine(Point{left, y}, Point{right, y}, 1, guideColor)
	}

	stroke := opts.color()
	for i := 1; i < len(g.Points); i++ {
		p.strokeLine(g.Points[i-1], g.Points[i], lineStroke, stroke)
		// Round joins so consecutive quads meet without notches.
		if i < len(g.Points)-1 {
			p.fillCircle(g.Points[i], lineStroke/2, stroke)
		}
	}
	for _, pt := range g.Points {
		p.fillCircle(pt, lineMarker, stroke)
	}

	for _, t := range g.Ticks {
		p.rotatedText(t.Label, t.X-lineTickShift, t.Y, lineTickAngle, tickFace, tickColor)
	}
}

// --- Bar chart ---

// Bar is one computed bar with its label placement.
type Bar struct {
	Index  int
	Label  string
	Rect   Rect
	Color  color.Color
	LabelX float64
	LabelY float64
}

// BarGeometry is everything DrawBarChart computes before touching pixels.
type BarGeometry struct {
	MaxVal   float64
	BarWidth float64
	Bars     []Bar
}

// BarLayout places one bar per value, evenly spaced with a fixed gap and
// scaled to the largest value (at least 1).
func BarLayout(width, height int, labels []string, values []float64, opts Options) BarGeometry {
	w, h := float64(width), float64(height)
	p := float64(barPadding)

	maxVal := 1.0
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
	}
	g := BarGeometry{MaxVal: maxVal}
	n := len(values)
	if n == 0 {
		return g
	}
	g.BarWidth = math.Max(0, (w-p*2-barGap*float64(n-1))/float64(n))

	for i, v := range values {
		x := p + float64(i)*(g.BarWidth+barGap)
		barHeight := (v / maxVal) * (h - p*2)
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		labelWidth := float64(font.MeasureString(barLabelFace, label).Ceil())
		g.Bars = append(g.Bars, Bar{
			Index:  i,
			Label:  label,
			Rect:   Rect{X: x, Y: h - p - barHeight, W: g.BarWidth, H: barHeight},
			Color:  opts.barColor(i),
			LabelX: x + g.BarWidth/2 - labelWidth/2,
			LabelY: h - barLabelInset,
		})
	}
	return g
}

// DrawBarChart clears dst and draws one filled bar per value with its label
// centred underneath.
func DrawBarChart(dst draw.Image, labels []string, values []float64, opts Options) {
	b := dst.Bounds()
	g := BarLayout(b.Dx(), b.Dy(), labels, values, opts)
	p := newPainter(dst)
	p.clear()

	for _, bar := range g.Bars {
		p.fillRect(bar.Rect, bar.Color)
		p.text(bar.Label, bar.LabelX, bar.LabelY, barLabelFace, barLabelColor)
	}
}
