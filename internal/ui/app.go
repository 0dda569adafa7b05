package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/Garsondee/Triage-Sense/internal/analytics"
	"github.com/Garsondee/Triage-Sense/internal/game"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// Logical screen size; the window scales it to fit.
const (
	ScreenWidth  = 1280
	ScreenHeight = 800
)

// App is the ebiten game hosting the game and analytics screens.
//
// Network work runs on goroutines tracked by Wait. Controllers write into the
// panels; Update uploads changed images and Draw reads panel copies.
type App struct {
	games     *game.Controller
	charts    *analytics.Controller
	gamePanel *GamePanel
	chartView *AnalyticsPanel
	status    *Status
	copyText  func(string) error
	logger    *log.Logger

	screen  Screen
	showHUD bool

	actionButtons []*Button
	toolButtons   []*Button
	chartButtons  []*Button

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	fetching     atomic.Bool
	loadingChart atomic.Bool
	chartVer     atomic.Uint64

	// Main-thread only.
	prevMouseLeft bool
	hudBuf        *ebiten.Image
	avatarImg     *ebiten.Image
	avatarVer     uint64
	chartImgs     map[string]*ebiten.Image
	chartImgVer   uint64
}

// AppOption configures an App.
type AppOption func(*App)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) AppOption {
	return func(a *App) {
		a.copyText = write
	}
}

// WithAppLogOutput directs the app's log lines to w.
func WithAppLogOutput(w io.Writer) AppOption {
	return func(a *App) {
		a.logger.SetOutput(w)
	}
}

// NewApp wires the two controllers to their panels. The controllers must
// have been built with gamePanel and chartView as their views.
func NewApp(games *game.Controller, charts *analytics.Controller, gamePanel *GamePanel, chartView *AnalyticsPanel, status *Status, opts ...AppOption) *App {
	a := &App{
		games:     games,
		charts:    charts,
		gamePanel: gamePanel,
		chartView: chartView,
		status:    status,
		copyText:  clipboard.WriteAll,
		logger:    log.New(log.Writer(), "[ui] ", log.LstdFlags),
		showHUD:   true,
		chartImgs: make(map[string]*ebiten.Image),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.actionButtons = []*Button{
		NewButton("Admit", "1", CmdAdmit, cardX, actionY, 190, 40),
		NewButton("Discharge", "2", CmdDischarge, cardX+205, actionY, 190, 40),
		NewButton("Isolate", "3", CmdIsolate, cardX+410, actionY, 190, 40),
	}
	a.toolButtons = []*Button{
		NewButton("Restart", "R", CmdRestart, cardX, toolY, 140, 32),
		NewButton("JSON", "J", CmdExportJSON, cardX+155, toolY, 110, 32),
		NewButton("CSV", "C", CmdExportCSV, cardX+275, toolY, 110, 32),
		NewButton("XLSX", "X", CmdExportXLSX, cardX+395, toolY, 110, 32),
	}
	a.chartButtons = []*Button{
		NewButton("JSON", "J", CmdExportJSON, ScreenWidth-260, 4, 110, 28),
		NewButton("CSV", "C", CmdExportCSV, ScreenWidth-140, 4, 110, 28),
	}
	return a
}

// Start fetches the first patient.
func (a *App) Start() {
	a.fetchPatient()
}

// Screen returns the visible screen.
func (a *App) Screen() Screen { return a.screen }

// Controls returns the game screen buttons a restart disables.
func (a *App) Controls() []game.Control {
	out := make([]game.Control, 0, len(a.actionButtons)+len(a.toolButtons))
	for _, b := range a.actionButtons {
		out = append(out, b)
	}
	for _, b := range a.toolButtons {
		out = append(out, b)
	}
	return out
}

// Wait blocks until all background work started by the app has finished.
func (a *App) Wait() {
	a.wg.Wait()
	a.games.Wait()
}

// Close cancels in-flight requests and shuts the game controller down.
func (a *App) Close() {
	a.cancel()
	a.wg.Wait()
	a.games.Close()
}

// --- Commands ---

// Dispatch runs cmd against the visible screen. Network commands return
// immediately; their work continues on a goroutine.
func (a *App) Dispatch(cmd Command) {
	switch cmd {
	case CmdToggleScreen:
		a.toggleScreen()
		return
	case CmdToggleHUD:
		a.showHUD = !a.showHUD
		return
	}

	if a.screen == ScreenAnalytics {
		switch cmd {
		case CmdRetry:
			a.loadAnalytics()
		case CmdExportJSON, CmdExportCSV:
			format, _ := cmd.Format()
			a.exportAnalytics(format)
		}
		return
	}

	if action, ok := cmd.Action(); ok {
		a.sendDecision(action)
		return
	}
	if format, ok := cmd.Format(); ok {
		a.exportGame(format)
		return
	}
	switch cmd {
	case CmdRestart:
		a.restart()
	case CmdRetry:
		if a.games.Phase() == game.PhaseLoading {
			a.fetchPatient()
		}
	case CmdCopyFinal:
		a.copyFinal()
	}
}

func (a *App) toggleScreen() {
	if a.screen == ScreenGame {
		a.screen = ScreenAnalytics
		a.loadAnalytics()
		return
	}
	a.screen = ScreenGame
}

func (a *App) sendDecision(action triage.Action) {
	if a.actionButtons[0].Disabled() {
		return
	}
	a.goRun(func(ctx context.Context) {
		err := a.games.SendDecision(ctx, action)
		if errors.Is(err, game.ErrNotReady) {
			a.logger.Printf("decision %s ignored: %v", action, err)
		}
	})
}

func (a *App) fetchPatient() {
	if !a.fetching.CompareAndSwap(false, true) {
		return
	}
	a.goRun(func(ctx context.Context) {
		defer a.fetching.Store(false)
		_ = a.games.FetchNewPatient(ctx)
	})
}

func (a *App) restart() {
	if a.toolButtons[0].Disabled() {
		return
	}
	controls := a.Controls()
	for _, c := range controls {
		c.SetDisabled(true)
	}
	a.goRun(func(ctx context.Context) {
		if err := a.games.Restart(ctx, controls...); err == nil {
			a.status.Info("New game started.")
		}
	})
}

func (a *App) copyFinal() {
	snap := a.games.Snapshot()
	if snap.Final == nil {
		return
	}
	if err := a.copyText(snap.Final.Text()); err != nil {
		a.status.Error(fmt.Errorf("copy summary: %w", err))
		return
	}
	a.status.Info("Final summary copied to clipboard.")
}

func (a *App) exportGame(format triage.Format) {
	a.goRun(func(ctx context.Context) {
		res, err := a.games.Export(ctx, format)
		a.reportExport(res.FileName, res.Location, err)
	})
}

func (a *App) exportAnalytics(format triage.Format) {
	a.goRun(func(ctx context.Context) {
		res, err := a.charts.Export(ctx, format)
		a.reportExport(res.FileName, res.Location, err)
	})
}

// reportExport shows a saved download. Failed downloads were already
// reported by the exporter; only a missing exporter is shown here.
func (a *App) reportExport(name, location string, err error) {
	switch {
	case errors.Is(err, game.ErrNoExporter), errors.Is(err, analytics.ErrNoExporter):
		a.status.Error(err)
	case err == nil:
		a.status.Info(fmt.Sprintf("Saved %s to %s", name, location))
	}
}

func (a *App) loadAnalytics() {
	if !a.loadingChart.CompareAndSwap(false, true) {
		return
	}
	a.goRun(func(ctx context.Context) {
		defer a.loadingChart.Store(false)
		if _, err := a.charts.Load(ctx); err == nil {
			a.chartVer.Add(1)
		}
	})
}

func (a *App) goRun(fn func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn(a.ctx)
	}()
}

// --- ebiten.Game ---

func (a *App) Update() error {
	a.handleInput()
	a.syncImages()
	return nil
}

// handleInput turns key presses and clicks into commands (edge-triggered).
func (a *App) handleInput() {
	for _, b := range Bindings(a.screen) {
		if inpututil.IsKeyJustPressed(b.Key) {
			a.Dispatch(b.Cmd)
		}
	}

	// Left mouse click: press the button under the cursor.
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if !a.prevMouseLeft {
			mx, my := ebiten.CursorPosition()
			if b := hit(a.visibleButtons(), mx, my); b != nil {
				a.Dispatch(b.Cmd)
			}
		}
	}
	a.prevMouseLeft = ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
}

func (a *App) visibleButtons() []*Button {
	if a.screen == ScreenAnalytics {
		return a.chartButtons
	}
	out := append([]*Button(nil), a.actionButtons...)
	return append(out, a.toolButtons...)
}

// syncImages uploads images that changed since the last frame.
func (a *App) syncImages() {
	if img, ver := a.gamePanel.Avatar(); ver != a.avatarVer {
		if a.avatarImg != nil {
			a.avatarImg.Deallocate()
			a.avatarImg = nil
		}
		if img != nil {
			a.avatarImg = ebiten.NewImageFromImage(img)
		}
		a.avatarVer = ver
	}

	// Chart surfaces are only read while no load is drawing on them.
	if ver := a.chartVer.Load(); ver != a.chartImgVer && !a.loadingChart.Load() {
		for _, id := range []string{analytics.SurfaceTrust, analytics.SurfaceBeds, analytics.SurfaceOutcomes} {
			if old := a.chartImgs[id]; old != nil {
				old.Deallocate()
			}
			a.chartImgs[id] = ebiten.NewImageFromImage(a.chartView.Image(id))
		}
		a.chartImgVer = ver
	}
}

func (a *App) Layout(_, _ int) (int, int) {
	return ScreenWidth, ScreenHeight
}
