package ui

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// Screen selects which view the window shows.
type Screen int

const (
	ScreenGame Screen = iota
	ScreenAnalytics
)

func (s Screen) String() string {
	if s == ScreenAnalytics {
		return "analytics"
	}
	return "game"
}

// Command is a user intent produced by a key or a button.
type Command int

const (
	CmdNone Command = iota
	CmdAdmit
	CmdDischarge
	CmdIsolate
	CmdRestart
	CmdRetry
	CmdExportJSON
	CmdExportCSV
	CmdExportXLSX
	CmdCopyFinal
	CmdToggleScreen
	CmdToggleHUD
)

// Action returns the decision a command sends, if any.
func (c Command) Action() (triage.Action, bool) {
	switch c {
	case CmdAdmit:
		return triage.ActionAdmit, true
	case CmdDischarge:
		return triage.ActionDischarge, true
	case CmdIsolate:
		return triage.ActionIsolate, true
	}
	return "", false
}

// Format returns the export format a command downloads, if any.
func (c Command) Format() (triage.Format, bool) {
	switch c {
	case CmdExportJSON:
		return triage.FormatJSON, true
	case CmdExportCSV:
		return triage.FormatCSV, true
	case CmdExportXLSX:
		return triage.FormatXLSX, true
	}
	return "", false
}

// Binding maps a key to a command.
type Binding struct {
	Key ebiten.Key
	Cmd Command
}

var globalBindings = []Binding{
	{ebiten.KeyTab, CmdToggleScreen},
	{ebiten.KeyH, CmdToggleHUD},
}

var gameBindings = []Binding{
	{ebiten.Key1, CmdAdmit},
	{ebiten.Key2, CmdDischarge},
	{ebiten.Key3, CmdIsolate},
	{ebiten.KeyR, CmdRestart},
	{ebiten.KeyN, CmdRetry},
	{ebiten.KeyJ, CmdExportJSON},
	{ebiten.KeyC, CmdExportCSV},
	{ebiten.KeyX, CmdExportXLSX},
	{ebiten.KeyY, CmdCopyFinal},
}

// The analytics view offers json and csv only.
var analyticsBindings = []Binding{
	{ebiten.KeyR, CmdRetry},
	{ebiten.KeyJ, CmdExportJSON},
	{ebiten.KeyC, CmdExportCSV},
}

// Bindings returns the keys active on screen, global ones first.
func Bindings(s Screen) []Binding {
	out := append([]Binding(nil), globalBindings...)
	if s == ScreenAnalytics {
		return append(out, analyticsBindings...)
	}
	return append(out, gameBindings...)
}

// CommandForKey returns the command bound to k on screen s, or CmdNone.
func CommandForKey(s Screen, k ebiten.Key) Command {
	for _, b := range Bindings(s) {
		if b.Key == k {
			return b.Cmd
		}
	}
	return CmdNone
}

// --- Buttons ---

// Button is a clickable, keyboard-labelled control. It implements
// game.Control so a restart can disable it.
type Button struct {
	Label string
	Hint  string // key shown next to the label
	Cmd   Command
	X, Y  int
	W, H  int

	mu       sync.Mutex
	disabled bool
}

// NewButton returns an enabled button.
func NewButton(label, hint string, cmd Command, x, y, w, h int) *Button {
	return &Button{Label: label, Hint: hint, Cmd: cmd, X: x, Y: y, W: w, H: h}
}

func (b *Button) SetDisabled(disabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = disabled
}

// Disabled reports whether the button ignores input.
func (b *Button) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

// Contains reports whether (x, y) lies inside the button.
func (b *Button) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H
}

// Text is the caption drawn on the button.
func (b *Button) Text() string {
	if b.Hint == "" {
		return b.Label
	}
	return "[" + b.Hint + "] " + b.Label
}

// hit returns the first enabled button containing (x, y).
func hit(buttons []*Button, x, y int) *Button {
	for _, b := range buttons {
		if b.Contains(x, y) && !b.Disabled() {
			return b
		}
	}
	return nil
}
