package chart

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"testing"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// --- LineLayout ---

func TestLineLayout_DenominatorsNeverZero(t *testing.T) {
	rng := rand.New(rand.NewSource(7)) // #nosec G404 -- test data
	for n := 0; n <= 12; n++ {
		for trial := 0; trial < 20; trial++ {
			values := make([]float64, n)
			constant := trial%3 == 0
			for i := range values {
				if constant {
					values[i] = 0.4
				} else {
					values[i] = rng.Float64()*200 - 50
				}
			}
			g := LineLayout(720, 300, nil, values)
			if g.Range < 1 {
				t.Fatalf("n=%d: range should be >= 1, got %.4f", n, g.Range)
			}
			if !finite(g.StepX) || g.StepX <= 0 {
				t.Fatalf("n=%d: stepX should be finite and positive, got %.4f", n, g.StepX)
			}
			for i, pt := range g.Points {
				if !finite(pt.X) || !finite(pt.Y) {
					t.Fatalf("n=%d: point %d not finite: %+v", n, i, pt)
				}
			}
		}
	}
}

func TestLineLayout_SinglePointUsesFullWidthStep(t *testing.T) {
	g := LineLayout(720, 300, []string{"D1"}, []float64{100})
	// (720 - 2*54) / max(1, 0)
	if g.StepX != 612 {
		t.Fatalf("expected stepX 612, got %.2f", g.StepX)
	}
	if g.Points[0].X != linePadding {
		t.Fatalf("first point should sit on the left padding, got %.2f", g.Points[0].X)
	}
}

func TestLineLayout_ScalesIntoPaddedBand(t *testing.T) {
	g := LineLayout(400, 300, nil, []float64{0, 50, 100})
	if g.MaxVal != 100 || g.MinVal != 0 || g.Range != 100 {
		t.Fatalf("expected max=100 min=0 range=100, got %.0f/%.0f/%.0f", g.MaxVal, g.MinVal, g.Range)
	}
	top := float64(linePadding)
	bottom := float64(300 - linePadding)
	if g.Points[0].Y != bottom {
		t.Fatalf("min value should map to bottom %.1f, got %.1f", bottom, g.Points[0].Y)
	}
	if g.Points[2].Y != top {
		t.Fatalf("max value should map to top %.1f, got %.1f", top, g.Points[2].Y)
	}
	if math.Abs(g.Points[1].Y-(top+bottom)/2) > 1e-9 {
		t.Fatalf("mid value should map to middle, got %.2f", g.Points[1].Y)
	}
}

func TestLineLayout_NegativeValuesExtendMin(t *testing.T) {
	g := LineLayout(400, 300, nil, []float64{-10, 5})
	if g.MinVal != -10 {
		t.Fatalf("expected min -10, got %.1f", g.MinVal)
	}
	if g.Range != 15 {
		t.Fatalf("expected range 15, got %.1f", g.Range)
	}
}

func TestLineLayout_FiveGuidesSpanPaddedBand(t *testing.T) {
	g := LineLayout(400, 300, nil, nil)
	if len(g.Guides) != 5 {
		t.Fatalf("expected 5 guides, got %d", len(g.Guides))
	}
	if g.Guides[0] != linePadding || g.Guides[4] != 300-linePadding {
		t.Fatalf("guides should span [%d, %d], got %.1f..%.1f", linePadding, 300-linePadding, g.Guides[0], g.Guides[4])
	}
}

func TestLineLayout_TickThinning(t *testing.T) {
	few := LineLayout(720, 300, []string{"D1", "D2", "D3", "D4", "D5", "D6"}, make([]float64, 6))
	if len(few.Ticks) != 6 {
		t.Fatalf("6 labels should all be drawn, got %d", len(few.Ticks))
	}
	many := LineLayout(720, 300, []string{"D1", "D2", "D3", "D4", "D5", "D6", "D7"}, make([]float64, 7))
	if len(many.Ticks) != 4 {
		t.Fatalf("7 labels should draw every other (4), got %d", len(many.Ticks))
	}
	for _, tk := range many.Ticks {
		if tk.Index%2 != 0 {
			t.Fatalf("odd tick %d should be skipped", tk.Index)
		}
		if tk.Y != 300-lineTickInset {
			t.Fatalf("tick baseline should be %d, got %.1f", 300-lineTickInset, tk.Y)
		}
	}
}

// --- BarLayout ---

func TestBarLayout_WidthAndScaling(t *testing.T) {
	opts := Options{Color: color.RGBA{G: 200, A: 255}}
	g := BarLayout(500, 300, []string{"Recovered", "Deaths", "Staff"}, []float64{10, 5, 0}, opts)
	// (500 - 2*68 - 28*2) / 3
	want := (500.0 - 136 - 56) / 3
	if math.Abs(g.BarWidth-want) > 1e-9 {
		t.Fatalf("expected bar width %.3f, got %.3f", want, g.BarWidth)
	}
	if len(g.Bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(g.Bars))
	}
	full := 300.0 - 2*barPadding
	if g.Bars[0].Rect.H != full {
		t.Fatalf("largest bar should be full height %.1f, got %.1f", full, g.Bars[0].Rect.H)
	}
	if g.Bars[1].Rect.H != full/2 {
		t.Fatalf("half value should be half height, got %.1f", g.Bars[1].Rect.H)
	}
	if g.Bars[2].Rect.H != 0 {
		t.Fatalf("zero value should have zero height, got %.1f", g.Bars[2].Rect.H)
	}
	if g.Bars[1].Rect.X != barPadding+want+barGap {
		t.Fatalf("second bar should start after one bar and gap, got %.2f", g.Bars[1].Rect.X)
	}
}

func TestBarLayout_ColourFallback(t *testing.T) {
	shared := color.RGBA{R: 1, A: 255}
	override := color.RGBA{B: 9, A: 255}
	g := BarLayout(500, 300, nil, []float64{1, 2, 3}, Options{Color: shared, Colors: []color.Color{override, nil}})
	if g.Bars[0].Color != override {
		t.Fatalf("bar 0 should use override, got %v", g.Bars[0].Color)
	}
	if g.Bars[1].Color != shared || g.Bars[2].Color != shared {
		t.Fatalf("bars without override should use shared colour, got %v %v", g.Bars[1].Color, g.Bars[2].Color)
	}
}

func TestBarLayout_LabelCentred(t *testing.T) {
	g := BarLayout(500, 300, []string{"Staff"}, []float64{4}, Options{})
	bar := g.Bars[0]
	// Bold8x16 advances 8px per glyph.
	labelWidth := 5.0 * 8
	centre := bar.Rect.X + bar.Rect.W/2
	if math.Abs((bar.LabelX+labelWidth/2)-centre) > 1e-9 {
		t.Fatalf("label should be centred at %.2f, starts at %.2f", centre, bar.LabelX)
	}
	if bar.LabelY != 300-barLabelInset {
		t.Fatalf("label baseline should be %d, got %.1f", 300-barLabelInset, bar.LabelY)
	}
}

func TestBarLayout_EmptyDegradesGracefully(t *testing.T) {
	g := BarLayout(500, 300, nil, nil, Options{})
	if g.MaxVal != 1 {
		t.Fatalf("empty series should floor max at 1, got %.1f", g.MaxVal)
	}
	if len(g.Bars) != 0 || g.BarWidth != 0 {
		t.Fatalf("empty series should produce no bars, got %d (width %.1f)", len(g.Bars), g.BarWidth)
	}
}

// --- Drawing ---

func near(a, b color.RGBA) bool {
	d := func(x, y uint8) bool { return x-y <= 2 || y-x <= 2 }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestDrawBarChart_FillsBarsAndClears(t *testing.T) {
	img := filled(500, 300, color.RGBA{R: 255, A: 255})
	green := color.RGBA{G: 200, A: 255}
	DrawBarChart(img, []string{"A"}, []float64{10}, Options{Color: green})

	if got := img.RGBAAt(2, 2); got.A != 0 {
		t.Fatalf("corner outside chart should be cleared, got %v", got)
	}
	g := BarLayout(500, 300, []string{"A"}, []float64{10}, Options{})
	r := g.Bars[0].Rect
	cx, cy := int(r.X+r.W/2), int(r.Y+r.H/2)
	if got := img.RGBAAt(cx, cy); !near(got, green) {
		t.Fatalf("bar interior should be %v, got %v", green, got)
	}
}

func TestDrawLineChart_DrawsGuidesAndMarkers(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	stroke := color.RGBA{R: 0xff, G: 0xb7, B: 0x4d, A: 0xff}
	values := []float64{3, 8, 5}
	DrawLineChart(img, []string{"D1", "D2", "D3"}, values, Options{Color: stroke})

	g := LineLayout(400, 300, nil, values)
	for _, pt := range g.Points {
		if got := img.RGBAAt(int(pt.X), int(pt.Y)); !near(got, stroke) {
			t.Fatalf("marker at %+v should be %v, got %v", pt, stroke, got)
		}
	}
	// A guide line pixel away from the series.
	if got := img.RGBAAt(linePadding+2, int(g.Guides[0])); got.A == 0 {
		t.Fatal("guide line should leave a translucent pixel")
	}
	// Tick labels land near the bottom edge.
	labelled := false
	for y := 300 - 30; y < 300; y++ {
		for x := 0; x < 400; x++ {
			if img.RGBAAt(x, y).A > 0 {
				labelled = true
			}
		}
	}
	if !labelled {
		t.Fatal("expected tick label pixels near the bottom edge")
	}
}

func TestDrawLineChart_EmptySeriesOnlyGuides(t *testing.T) {
	img := filled(400, 300, color.RGBA{B: 255, A: 255})
	DrawLineChart(img, nil, nil, Options{})
	if got := img.RGBAAt(200, 130); got.A != 0 {
		t.Fatalf("empty chart body should be cleared, got %v", got)
	}
}

func TestDrawLineChart_OffsetBounds(t *testing.T) {
	// Surfaces that are sub-images keep drawing inside their own bounds.
	parent := image.NewRGBA(image.Rect(0, 0, 800, 600))
	sub := parent.SubImage(image.Rect(400, 300, 800, 600)).(*image.RGBA)
	DrawLineChart(sub, nil, []float64{1, 2}, Options{Color: color.RGBA{R: 255, A: 255}})
	if got := parent.RGBAAt(10, 10); got.A != 0 {
		t.Fatalf("pixels outside the sub-image must be untouched, got %v", got)
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#00bcd4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != (color.RGBA{R: 0, G: 0xbc, B: 0xd4, A: 0xff}) {
		t.Fatalf("unexpected colour %v", c)
	}
	short, err := ParseHex("fb0")
	if err != nil || short != (color.RGBA{R: 0xff, G: 0xbb, B: 0x00, A: 0xff}) {
		t.Fatalf("short form: got %v (err=%v)", short, err)
	}
	if _, err := ParseHex("#12345"); err == nil {
		t.Fatal("expected error for 5-digit colour")
	}
}
