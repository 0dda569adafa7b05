package ui

import (
	"image"
	"sync"
	"time"

	"github.com/Garsondee/Triage-Sense/internal/analytics"
	"github.com/Garsondee/Triage-Sense/internal/export"
	"github.com/Garsondee/Triage-Sense/internal/game"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// statusTTL is how long a status line stays on screen.
const statusTTL = 6 * time.Second

// --- Status line ---

// Status is the one-line notice shown at the bottom of both screens.
type Status struct {
	mu    sync.Mutex
	now   func() time.Time
	text  string
	isErr bool
	until time.Time
}

// NewStatus returns an empty status line. A nil now uses time.Now.
func NewStatus(now func() time.Time) *Status {
	if now == nil {
		now = time.Now
	}
	return &Status{now: now}
}

// Info shows text as a normal notice.
func (s *Status) Info(text string) {
	s.set(text, false)
}

// Error shows err as a failure notice.
func (s *Status) Error(err error) {
	if err == nil {
		return
	}
	s.set("Error: "+err.Error(), true)
}

// ReportExportFailure shows the generic download failure message.
func (s *Status) ReportExportFailure(triage.Format, error) {
	s.set(export.FailureMessage, true)
}

func (s *Status) set(text string, isErr bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.isErr = isErr
	s.until = s.now().Add(statusTTL)
}

// Current returns the visible notice, or "" once it has expired.
func (s *Status) Current() (text string, isErr bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.text == "" || s.now().After(s.until) {
		return "", false
	}
	return s.text, s.isErr
}

// --- Game panel ---

// GamePanel is the game screen's display state. It implements game.View;
// the controller writes from worker goroutines and Draw reads a copy.
type GamePanel struct {
	mu        sync.Mutex
	status    *Status
	loading   bool
	card      *game.PatientCard
	avatar    image.Image
	avatarVer uint64
	state     *game.StateView
	message   string
	final     *game.FinalView
}

// GameFrame is a copy of GamePanel taken for one frame.
type GameFrame struct {
	Loading bool
	Card    *game.PatientCard
	State   *game.StateView
	Message string
	Final   *game.FinalView
}

// NewGamePanel returns an empty panel reporting errors to status.
func NewGamePanel(status *Status) *GamePanel {
	return &GamePanel{status: status, loading: true}
}

func (p *GamePanel) ShowLoading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = true
}

func (p *GamePanel) ShowPatient(card game.PatientCard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	p.card = &card
}

func (p *GamePanel) ShowAvatar(img image.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.avatar = img
	p.avatarVer++
}

func (p *GamePanel) ShowState(s game.StateView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = &s
}

func (p *GamePanel) ShowMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.message = text
}

func (p *GamePanel) ShowFinal(f game.FinalView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	p.final = &f
}

func (p *GamePanel) HideFinal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.final = nil
}

func (p *GamePanel) ShowError(err error) {
	p.status.Error(err)
}

// Frame returns a copy of the panel state.
func (p *GamePanel) Frame() GameFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return GameFrame{
		Loading: p.loading,
		Card:    p.card,
		State:   p.state,
		Message: p.message,
		Final:   p.final,
	}
}

// Avatar returns the current avatar (nil for the placeholder) and a version
// that changes on every ShowAvatar.
func (p *GamePanel) Avatar() (image.Image, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avatar, p.avatarVer
}

// --- Analytics panel ---

// AnalyticsPanel is the analytics screen's display state: in-memory chart
// surfaces and metric text, with errors echoed to the status line.
type AnalyticsPanel struct {
	*analytics.MemoryView
	status *Status
}

// NewAnalyticsPanel returns a panel with fresh chart surfaces.
func NewAnalyticsPanel(status *Status) *AnalyticsPanel {
	return &AnalyticsPanel{MemoryView: analytics.NewMemoryView(), status: status}
}

func (p *AnalyticsPanel) ShowError(err error) {
	p.MemoryView.ShowError(err)
	p.status.Error(err)
}
