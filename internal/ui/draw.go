package ui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Triage-Sense/internal/analytics"
	"github.com/Garsondee/Triage-Sense/internal/game"
	"github.com/Garsondee/Triage-Sense/internal/metrics"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// Layout, in logical pixels.
const (
	headerH    = 36
	cardX      = 16
	cardY      = 48
	cardW      = 600
	cardH      = 232
	avatarSize = 128
	actionY    = cardY + cardH + 12
	stateY     = actionY + 52
	stateH     = 150
	messageY   = stateY + stateH + 12
	finalY     = messageY + 52
	toolY      = 720

	logPanelWidth = 380
	logLineHeight = 16
	charW         = 6 // debug font glyph width at 1x
	hudScale      = 2
)

var (
	bgColor      = color.RGBA{R: 12, G: 16, B: 20, A: 255}
	panelColor   = color.RGBA{R: 22, G: 30, B: 38, A: 245}
	borderColor  = color.RGBA{R: 60, G: 84, B: 100, A: 255}
	headerColor  = color.RGBA{R: 18, G: 40, B: 52, A: 255}
	buttonColor  = color.RGBA{R: 32, G: 72, B: 90, A: 255}
	disabledBtn  = color.RGBA{R: 40, G: 44, B: 48, A: 255}
	barBackColor = color.RGBA{R: 36, G: 44, B: 52, A: 255}
	bedsBarColor = color.RGBA{R: 0x00, G: 0xbc, B: 0xd4, A: 255}
	trustBar     = color.RGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 255}
	errorColor   = color.RGBA{R: 120, G: 28, B: 28, A: 230}
	infoColor    = color.RGBA{R: 28, G: 70, B: 40, A: 230}
	highlightRow = color.RGBA{R: 30, G: 44, B: 56, A: 160}
)

// riskColor is the badge fill for a risk level.
func riskColor(r triage.Risk) color.RGBA {
	switch r.OrDefault() {
	case triage.RiskHigh:
		return color.RGBA{R: 0xe5, G: 0x39, B: 0x35, A: 255}
	case triage.RiskMedium:
		return color.RGBA{R: 0xff, G: 0xb7, B: 0x4d, A: 255}
	default:
		return color.RGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 255}
	}
}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	a.drawHeader(screen)
	if a.screen == ScreenAnalytics {
		a.drawAnalytics(screen)
	} else {
		a.drawGame(screen)
	}
	a.drawStatus(screen)
	if a.showHUD {
		a.drawHUD(screen)
	}
}

func (a *App) drawHeader(screen *ebiten.Image) {
	vector.FillRect(screen, 0, 0, ScreenWidth, headerH, headerColor, false)
	vector.StrokeLine(screen, 0, headerH, ScreenWidth, headerH, 1.0, borderColor, false)

	title := "TRIAGE SENSE  |  Game"
	if a.screen == ScreenAnalytics {
		title = "TRIAGE SENSE  |  Analytics"
	}
	if f := a.gamePanel.Frame(); f.State != nil {
		title += "  |  Day " + f.State.Day
	}
	ebitenutil.DebugPrintAt(screen, title, 12, 10)
	ebitenutil.DebugPrintAt(screen, "[Tab] switch view", ScreenWidth/2-50, 10)
	if a.screen == ScreenAnalytics {
		a.drawButtons(screen, a.chartButtons)
	}
}

// --- Game screen ---

func (a *App) drawGame(screen *ebiten.Image) {
	f := a.gamePanel.Frame()
	snap := a.games.Snapshot()

	a.drawCard(screen, f)
	for _, b := range a.actionButtons {
		a.drawButton(screen, b, b.Disabled() || !snap.Phase.AcceptsDecision())
	}
	a.drawState(screen, f.State)
	a.drawMessage(screen, f.Message)
	if f.Final != nil {
		a.drawFinal(screen, *f.Final)
	}
	a.drawButtons(screen, a.toolButtons)
	a.drawMessageLog(screen, ScreenWidth-logPanelWidth, headerH, ScreenHeight-headerH)
}

func (a *App) drawCard(screen *ebiten.Image, f GameFrame) {
	drawPanel(screen, cardX, cardY, cardW, cardH)

	ax, ay := float32(cardX+12), float32(cardY+12)
	vector.FillRect(screen, ax, ay, avatarSize, avatarSize, barBackColor, false)
	if a.avatarImg != nil {
		b := a.avatarImg.Bounds()
		scale := float64(avatarSize) / float64(max(b.Dx(), b.Dy(), 1))
		opts := &ebiten.DrawImageOptions{}
		opts.GeoM.Scale(scale, scale)
		opts.GeoM.Translate(float64(ax), float64(ay))
		screen.DrawImage(a.avatarImg, opts)
	} else {
		ebitenutil.DebugPrintAt(screen, "no avatar", int(ax)+37, int(ay)+56)
	}
	vector.StrokeRect(screen, ax, ay, avatarSize, avatarSize, 1.0, borderColor, false)

	tx := cardX + 12 + avatarSize + 16
	ty := cardY + 12
	if f.Loading || f.Card == nil {
		ebitenutil.DebugPrintAt(screen, "Loading patient...", tx, ty)
		return
	}
	c := f.Card
	vector.FillRect(screen, float32(tx), float32(ty), 96, 18, riskColor(c.Risk), false)
	ebitenutil.DebugPrintAt(screen, strings.ToUpper(string(c.Risk))+" RISK", tx+6, ty+1)

	lines := []string{
		"Age:          " + c.Age,
		"Exposure:     " + c.Exposure,
		"Comorbidity:  " + c.Comorbidity,
		"Symptoms:",
	}
	lines = append(lines, wrapText(c.Symptoms, (cardW-avatarSize-52)/charW)...)
	for i, l := range lines {
		ebitenutil.DebugPrintAt(screen, l, tx, ty+28+i*logLineHeight)
	}
}

func (a *App) drawState(screen *ebiten.Image, s *game.StateView) {
	drawPanel(screen, cardX, stateY, cardW, stateH)
	if s == nil {
		return
	}
	x, y := cardX+12, stateY+10
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Day %-4s Beds %-7s Treated %-4s", s.Day, s.Beds, s.Treated), x, y)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Recovered %-4s Deaths %-4s Staff infected %-4s", s.Recovered, s.Deaths, s.StaffInfected), x, y+logLineHeight)

	drawBar(screen, "Beds available", x, y+44, cardW-24, s.Bars.BedsPct, bedsBarColor)
	drawBar(screen, "Public trust "+s.Trust, x, y+88, cardW-24, s.Bars.TrustPct, trustBar)
}

func (a *App) drawMessage(screen *ebiten.Image, msg string) {
	drawPanel(screen, cardX, messageY, cardW, 40)
	if msg != "" {
		ebitenutil.DebugPrintAt(screen, msg, cardX+12, messageY+12)
	}
}

func (a *App) drawFinal(screen *ebiten.Image, f game.FinalView) {
	h := len(f.Lines)*logLineHeight + 44
	drawPanel(screen, cardX, finalY, cardW, h)
	vector.FillRect(screen, cardX, finalY, cardW, 18, headerColor, false)
	ebitenutil.DebugPrintAt(screen, "GAME OVER   [Y] copy summary   [R] restart", cardX+8, finalY+1)
	for i, l := range f.Lines {
		ebitenutil.DebugPrintAt(screen, l, cardX+12, finalY+26+i*logLineHeight)
	}
}

// drawMessageLog renders the outcome history panel, newest at the bottom.
func (a *App) drawMessageLog(screen *ebiten.Image, panelX, panelY, panelH int) {
	vector.FillRect(screen, float32(panelX), float32(panelY), logPanelWidth, float32(panelH), panelColor, false)
	vector.StrokeLine(screen, float32(panelX), float32(panelY), float32(panelX), float32(panelY+panelH), 1.0, borderColor, false)

	vector.FillRect(screen, float32(panelX), float32(panelY), logPanelWidth, 18, headerColor, false)
	ebitenutil.DebugPrintAt(screen, "OUTCOMES", panelX+8, panelY+1)

	lines := messageLines(a.games.Messages().Recent(), (logPanelWidth-16)/charW)
	maxVisible := (panelH - 26) / logLineHeight
	if len(lines) > maxVisible {
		lines = lines[len(lines)-maxVisible:]
	}
	recent := 3 // latest rows to highlight

	y := panelY + 22
	for i, l := range lines {
		if i >= len(lines)-recent {
			vector.FillRect(screen, float32(panelX+2), float32(y), logPanelWidth-4, logLineHeight, highlightRow, false)
		}
		ebitenutil.DebugPrintAt(screen, l, panelX+8, y)
		y += logLineHeight
	}
}

// --- Analytics screen ---

var metricCards = []struct {
	title, value, caption string
}{
	{"Survival", metrics.SlotSurvival, metrics.SlotSurvivalSub},
	{"Staff impact", metrics.SlotStaff, metrics.SlotStaffSub},
	{"Public trust", metrics.SlotTrust, metrics.SlotTrustSub},
	{"Bed utilization", metrics.SlotBeds, metrics.SlotBedsSub},
}

func (a *App) drawAnalytics(screen *ebiten.Image) {
	const cardWidth, gap = 302, 10
	for i, m := range metricCards {
		x := cardX + i*(cardWidth+gap)
		drawPanel(screen, x, cardY, cardWidth, 64)
		ebitenutil.DebugPrintAt(screen, m.title, x+10, cardY+6)
		ebitenutil.DebugPrintAt(screen, orBlank(a.chartView.Text(m.value)), x+10, cardY+24)
		ebitenutil.DebugPrintAt(screen, a.chartView.Text(m.caption), x+10, cardY+42)
	}

	const chartY = cardY + 76
	a.drawChart(screen, analytics.SurfaceTrust, "Public trust by day", cardX, chartY)
	a.drawChart(screen, analytics.SurfaceOutcomes, "Outcomes", cardX+analytics.LineChartWidth+16, chartY)
	a.drawChart(screen, analytics.SurfaceBeds, "Beds in use by day", cardX, chartY+analytics.LineChartHeight+16)

	if a.loadingChart.Load() {
		ebitenutil.DebugPrintAt(screen, "Loading analytics...", cardX+analytics.LineChartWidth+28, chartY+analytics.LineChartHeight+28)
	}
}

func (a *App) drawChart(screen *ebiten.Image, id, title string, x, y int) {
	img := a.chartImgs[id]
	if img == nil {
		return
	}
	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, opts)
	b := img.Bounds()
	vector.StrokeRect(screen, float32(x), float32(y), float32(b.Dx()), float32(b.Dy()), 1.0, borderColor, false)
	ebitenutil.DebugPrintAt(screen, title, x+8, y+6)
}

// --- Shared widgets ---

func (a *App) drawButtons(screen *ebiten.Image, buttons []*Button) {
	for _, b := range buttons {
		a.drawButton(screen, b, b.Disabled())
	}
}

func (a *App) drawButton(screen *ebiten.Image, b *Button, disabled bool) {
	fill := buttonColor
	if disabled {
		fill = disabledBtn
	}
	vector.FillRect(screen, float32(b.X), float32(b.Y), float32(b.W), float32(b.H), fill, false)
	vector.StrokeRect(screen, float32(b.X), float32(b.Y), float32(b.W), float32(b.H), 1.0, borderColor, false)
	text := b.Text()
	ebitenutil.DebugPrintAt(screen, text, b.X+(b.W-len(text)*charW)/2, b.Y+(b.H-16)/2)
}

func (a *App) drawStatus(screen *ebiten.Image) {
	text, isErr := a.status.Current()
	if text == "" {
		return
	}
	fill := infoColor
	if isErr {
		fill = errorColor
	}
	y := ScreenHeight - 26
	w := len(text)*charW + 20
	vector.FillRect(screen, cardX, float32(y), float32(w), 22, fill, false)
	ebitenutil.DebugPrintAt(screen, text, cardX+10, y+3)
}

// drawHUD renders the key legend into hudBuf at 1x, then blits it at hudScale
// in the bottom-right corner of the game area.
func (a *App) drawHUD(screen *ebiten.Image) {
	lines := hudLines(a.screen)

	const lineH = 12
	const padX = 5
	const padY = 4
	maxLen := 0
	for _, l := range lines {
		maxLen = max(maxLen, len(l))
	}
	boxW := float32(maxLen*charW + padX*2)
	boxH := float32(len(lines)*lineH + padY*2)

	if a.hudBuf == nil {
		a.hudBuf = ebiten.NewImage(ScreenWidth/hudScale, ScreenHeight/hudScale)
	}
	a.hudBuf.Clear()
	vector.FillRect(a.hudBuf, 0, 0, boxW, boxH, color.RGBA{R: 6, G: 10, B: 14, A: 210}, false)
	vector.StrokeRect(a.hudBuf, 0, 0, boxW, boxH, 1.0, color.RGBA{R: 60, G: 90, B: 110, A: 180}, false)
	for i, line := range lines {
		ebitenutil.DebugPrintAt(a.hudBuf, line, padX, padY+i*lineH)
	}

	// Anchor to the left of the outcomes panel, above the status line.
	right := float64(ScreenWidth - logPanelWidth - 12)
	if a.screen == ScreenAnalytics {
		right = ScreenWidth - 12
	}
	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(hudScale, hudScale)
	opts.GeoM.Translate(right-float64(boxW)*hudScale, float64(ScreenHeight-40)-float64(boxH)*hudScale)
	screen.DrawImage(a.hudBuf, opts)
}

// --- Text helpers ---

// hudLines is the key legend for screen s.
func hudLines(s Screen) []string {
	if s == ScreenAnalytics {
		return []string{"R=reload  J/C=export", "Tab=game  H=hide keys"}
	}
	return []string{
		"1/2/3=admit/discharge/isolate",
		"R=restart  N=retry fetch",
		"J/C/X=export  Y=copy final",
		"Tab=analytics  H=hide keys",
	}
}

// messageLines formats outcome messages as wrapped panel rows.
func messageLines(msgs []game.Message, width int) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, wrapText(fmt.Sprintf("D%02d %-9s %s", m.Day, m.Action, m.Text), width)...)
	}
	return out
}

// wrapText breaks s into lines of at most width characters at spaces.
// Words longer than width are split.
func wrapText(s string, width int) []string {
	if width <= 0 {
		width = 1
	}
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		for len(word) > width {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func orBlank(s string) string {
	if s == "" {
		return "--"
	}
	return s
}

func drawPanel(screen *ebiten.Image, x, y, w, h int) {
	vector.FillRect(screen, float32(x), float32(y), float32(w), float32(h), panelColor, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 1.0, borderColor, false)
}

// drawBar draws a labelled percentage bar.
func drawBar(screen *ebiten.Image, label string, x, y, w, pct int, fill color.Color) {
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s (%d%%)", label, pct), x, y)
	by := float32(y + 18)
	vector.FillRect(screen, float32(x), by, float32(w), 14, barBackColor, false)
	vector.FillRect(screen, float32(x), by, float32(w*pct/100), 14, fill, false)
}
