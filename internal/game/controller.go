package game

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Garsondee/Triage-Sense/internal/export"
	"github.com/Garsondee/Triage-Sense/internal/task"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// DefaultRevealDelay is how long the next patient card waits after a
// decision's outcome message is shown.
const DefaultRevealDelay = 600 * time.Millisecond

var (
	// ErrNotReady is returned when a decision is sent with no patient on screen.
	ErrNotReady = errors.New("no patient awaiting a decision")
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("controller closed")
	// ErrNoExporter is returned by Export when no exporter was configured.
	ErrNoExporter = errors.New("export not configured")
	// ErrMalformed is returned when a response lacks the fields its shape requires.
	ErrMalformed = errors.New("malformed server response")
)

// Backend is the server API the controller drives.
type Backend interface {
	NewPatient(ctx context.Context) (*triage.NewPatientResponse, error)
	Decide(ctx context.Context, action triage.Action) (*triage.DecisionResponse, error)
	Avatar(ctx context.Context, age int) (*triage.AvatarResponse, error)
	FetchImage(ctx context.Context, ref string) (image.Image, error)
	Restart(ctx context.Context) error
}

// Snapshot is a point-in-time copy of the controller's client state.
type Snapshot struct {
	Phase         Phase
	Patient       *triage.Patient
	State         *triage.GameState
	Message       string
	Final         *triage.FinalResult
	RevealPending bool
	AvatarSeq     uint64
}

// Controller owns the game view: it fetches patients, sends decisions,
// schedules the delayed patient reveal and loads avatars.
//
// Slot and Deferred methods are never called while mu is held; their
// callbacks take mu themselves.
type Controller struct {
	id       string
	backend  Backend
	view     View
	exporter *export.Exporter
	clock    task.Clock
	reveal   time.Duration
	logger   *log.Logger
	events   *EventLog
	messages *MessageLog

	root   context.Context
	cancel context.CancelFunc
	avatar task.Slot
	render *task.Deferred
	wg     sync.WaitGroup

	mu      sync.Mutex
	// turn is bumped by every fetch, decision and reset; a reply carrying
	// an older turn has been overtaken and is dropped.
	turn    uint64
	phase   Phase
	patient *triage.Patient
	state   *triage.GameState
	message string
	final   *triage.FinalResult
	closed  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithView sets the display surface. The default discards output.
func WithView(v View) Option {
	return func(c *Controller) {
		c.view = v
	}
}

// WithClock sets the clock driving the reveal delay.
func WithClock(clock task.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithRevealDelay sets the patient reveal delay. Zero reveals immediately.
func WithRevealDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.reveal = d
	}
}

// WithExporter enables Export.
func WithExporter(e *export.Exporter) Option {
	return func(c *Controller) {
		c.exporter = e
	}
}

// WithLogOutput directs the controller's log lines to w.
func WithLogOutput(w io.Writer) Option {
	return func(c *Controller) {
		c.logger.SetOutput(w)
	}
}

// New returns a controller in the Loading phase. Call FetchNewPatient to start.
func New(backend Backend, opts ...Option) *Controller {
	id := uuid.NewString()
	c := &Controller{
		id:       id,
		backend:  backend,
		view:     NopView{},
		clock:    task.SystemClock,
		reveal:   DefaultRevealDelay,
		logger:   log.New(log.Writer(), "[game "+id[:8]+"] ", log.LstdFlags),
		events:   NewEventLog(),
		messages: NewMessageLog(),
		phase:    PhaseLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.render = task.NewDeferred(c.clock)
	c.root, c.cancel = context.WithCancel(context.Background())
	return c
}

// ID returns the controller's instance id.
func (c *Controller) ID() string { return c.id }

// Events returns the structured event log.
func (c *Controller) Events() *EventLog { return c.events }

// Messages returns the outcome message history.
func (c *Controller) Messages() *MessageLog { return c.messages }

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns a copy of the current client state.
func (c *Controller) Snapshot() Snapshot {
	pending := c.render.Pending()
	seq := c.avatar.Seq()

	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Phase:         c.phase,
		Message:       c.message,
		RevealPending: pending,
		AvatarSeq:     seq,
	}
	if c.patient != nil {
		p := *c.patient
		s.Patient = &p
	}
	if c.state != nil {
		st := *c.state
		s.State = &st
	}
	if c.final != nil {
		f := *c.final
		s.Final = &f
	}
	return s
}

// --- Turn cycle ---

// FetchNewPatient hides the final block, clears the message and asks the
// server for the next patient. A game_over answer moves to GameOver.
func (c *Controller) FetchNewPatient(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.turn++
	turn := c.turn
	c.phase = PhaseLoading
	c.message = ""
	c.final = nil
	day := c.dayLocked()
	c.mu.Unlock()

	c.view.HideFinal()
	c.view.ShowMessage("")
	c.view.ShowLoading()
	c.events.Add(day, CatPhase, "enter", PhaseLoading.String(), 0)
	c.events.Add(day, CatRequest, "new_patient", "", 0)

	resp, err := c.backend.NewPatient(ctx)
	if err != nil {
		return c.fail(day, "new_patient", err)
	}
	if resp.GameOver {
		c.mu.Lock()
		current := c.currentLocked(turn, PhaseLoading)
		var f triage.FinalResult
		if current {
			f = c.setGameOverLocked(resp.Final)
		}
		c.mu.Unlock()
		if current {
			c.finishGameOver(f)
		}
		return nil
	}
	if resp.Patient == nil || resp.State == nil {
		return c.fail(day, "new_patient", fmt.Errorf("new_patient: %w", ErrMalformed))
	}

	c.mu.Lock()
	if !c.currentLocked(turn, PhaseLoading) {
		// A restart or close overtook this fetch.
		c.mu.Unlock()
		return nil
	}
	p, st := *resp.Patient, *resp.State
	c.patient = &p
	c.state = &st
	c.phase = PhasePatientShown
	c.mu.Unlock()

	c.events.Add(st.Day, CatPhase, "enter", PhasePatientShown.String(), 0)
	c.view.ShowState(NewStateView(st))
	c.renderPatient(p)
	return nil
}

// SendDecision posts action for the patient on screen. The outcome message
// and state are shown at once; the next patient card appears after the
// reveal delay.
func (c *Controller) SendDecision(ctx context.Context, action triage.Action) error {
	if !action.Valid() {
		return fmt.Errorf("send decision: unknown action %q", action)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.phase.AcceptsDecision() {
		ph := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w (phase %s)", ErrNotReady, ph)
	}
	c.turn++
	turn := c.turn
	c.phase = PhaseDecisionSent
	day := c.dayLocked()
	c.mu.Unlock()

	c.render.Cancel()
	c.events.Add(day, CatDecision, "sent", string(action), 0)

	resp, err := c.backend.Decide(ctx, action)
	if err != nil {
		c.mu.Lock()
		if c.currentLocked(turn, PhaseDecisionSent) {
			c.phase = PhasePatientShown
		}
		c.mu.Unlock()
		return c.fail(day, "decision", err)
	}

	c.mu.Lock()
	if !c.currentLocked(turn, PhaseDecisionSent) {
		// A restart or close overtook this decision; its outcome belongs
		// to a discarded game.
		c.mu.Unlock()
		return nil
	}
	malformed := !resp.GameOver && (resp.Patient == nil || resp.State == nil)
	var f triage.FinalResult
	switch {
	case resp.GameOver:
		c.message = resp.Message
		f = c.setGameOverLocked(resp.Final)
	case malformed:
		c.phase = PhasePatientShown
	default:
		p, st := *resp.Patient, *resp.State
		c.message = resp.Message
		c.state = &st
		c.patient = &p
	}
	c.mu.Unlock()

	if resp.Message != "" {
		c.messages.Add(day, string(action), resp.Message)
	}
	c.events.Add(day, CatDecision, "outcome", resp.Message, 0)

	if resp.GameOver {
		c.view.ShowMessage(resp.Message)
		c.finishGameOver(f)
		return nil
	}
	if malformed {
		return c.fail(day, "decision", fmt.Errorf("decision: %w", ErrMalformed))
	}

	p, st := *resp.Patient, *resp.State
	c.view.ShowMessage(resp.Message)
	c.view.ShowState(NewStateView(st))
	c.scheduleReveal(p)
	return nil
}

func (c *Controller) scheduleReveal(p triage.Patient) {
	if c.reveal <= 0 {
		c.revealPatient(p)
		return
	}
	c.render.Schedule(c.reveal, func() { c.revealPatient(p) })
}

func (c *Controller) revealPatient(p triage.Patient) {
	c.mu.Lock()
	if c.phase != PhaseDecisionSent {
		c.mu.Unlock()
		return
	}
	c.phase = PhasePatientShown
	c.message = ""
	day := c.dayLocked()
	c.mu.Unlock()

	c.events.Add(day, CatRender, "reveal", fmt.Sprintf("age %d", p.Age), 0)
	c.events.Add(day, CatPhase, "enter", PhasePatientShown.String(), 0)
	c.view.ShowMessage("")
	c.renderPatient(p)
}

// renderPatient shows the card and starts the avatar load. The avatar ticket
// is claimed before returning so a later render always supersedes it.
func (c *Controller) renderPatient(p triage.Patient) {
	c.view.ShowPatient(NewPatientCard(p))

	ctx, t := c.avatar.Begin(c.root)
	t.Apply(func() { c.view.ShowAvatar(nil) })
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loadAvatar(ctx, t, p.Age)
	}()
}

// LoadAvatar shows the placeholder, then fetches an avatar for age and shows
// it unless a newer load has started meanwhile. Failures keep the
// placeholder. Returns whether the image was applied.
func (c *Controller) LoadAvatar(ctx context.Context, age int) bool {
	actx, t := c.avatar.Begin(ctx)
	t.Apply(func() { c.view.ShowAvatar(nil) })
	return c.loadAvatar(actx, t, age)
}

func (c *Controller) loadAvatar(ctx context.Context, t task.Ticket, age int) bool {
	defer t.Release()
	day := c.day()

	resp, err := c.backend.Avatar(ctx, age)
	if err != nil {
		c.events.Add(day, CatAvatar, "failed", err.Error(), float64(t.ID()))
		return false
	}
	if resp.URL == "" {
		c.events.Add(day, CatAvatar, "empty", "", float64(t.ID()))
		return false
	}
	img, err := c.backend.FetchImage(ctx, resp.URL)
	if err != nil {
		c.events.Add(day, CatAvatar, "failed", err.Error(), float64(t.ID()))
		return false
	}
	if !t.Apply(func() { c.view.ShowAvatar(img) }) {
		c.events.Add(day, CatAvatar, "stale", resp.URL, float64(t.ID()))
		return false
	}
	c.events.Add(day, CatAvatar, "applied", resp.URL, float64(t.ID()))
	return true
}

// ShowFinal renders the terminal summary and reveals the final block.
func (c *Controller) ShowFinal(f triage.FinalResult) {
	c.view.ShowFinal(NewFinalView(f))
}

// currentLocked reports whether a reply for turn, sent in phase want, still
// owns the screen.
func (c *Controller) currentLocked(turn uint64, want Phase) bool {
	return !c.closed && c.turn == turn && c.phase == want
}

func (c *Controller) setGameOverLocked(final *triage.FinalResult) triage.FinalResult {
	f := triage.FinalResult{}
	if final != nil {
		f = *final
	}
	c.phase = PhaseGameOver
	c.final = &f
	return f
}

// finishGameOver cancels the pending reveal and shows the final block.
func (c *Controller) finishGameOver(f triage.FinalResult) {
	c.render.Cancel()
	c.events.Add(f.Day, CatPhase, "enter", PhaseGameOver.String(), 0)
	c.logger.Printf("game over: %s after %d days", f.Rating, f.Day)
	c.ShowFinal(f)
}

// --- Restart ---

// Restart disables controls, discards the server game, clears client state
// and fetches a fresh patient. Controls are re-enabled whatever the outcome.
func (c *Controller) Restart(ctx context.Context, controls ...Control) error {
	for _, ctl := range controls {
		ctl.SetDisabled(true)
	}
	defer func() {
		for _, ctl := range controls {
			ctl.SetDisabled(false)
		}
	}()

	if c.isClosed() {
		return ErrClosed
	}
	day := c.day()
	c.events.Add(day, CatRequest, "restart", "", 0)
	if err := c.backend.Restart(ctx); err != nil {
		return c.fail(day, "restart", err)
	}
	c.resetClientState()
	return c.FetchNewPatient(ctx)
}

func (c *Controller) resetClientState() {
	c.render.Cancel()
	c.avatar.Invalidate()

	c.mu.Lock()
	c.turn++
	c.phase = PhaseLoading
	c.patient = nil
	c.message = ""
	c.final = nil
	c.mu.Unlock()

	c.messages.Reset()
	c.view.ShowMessage("")
	c.view.ShowAvatar(nil)
	c.events.Add(0, CatPhase, "reset", "", 0)
}

// --- Export ---

// Export downloads the current summary in format.
func (c *Controller) Export(ctx context.Context, format triage.Format) (export.Result, error) {
	if c.exporter == nil {
		return export.Result{}, ErrNoExporter
	}
	day := c.day()
	res, err := c.exporter.Download(ctx, format)
	if err != nil {
		c.events.Add(day, CatExport, "failed", string(format), 0)
		return res, err
	}
	c.events.Add(day, CatExport, "saved", res.Location, 0)
	return res, nil
}

// --- Lifecycle ---

// Wait blocks until every background avatar load has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels pending work and waits for background loads.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.render.Cancel()
	c.avatar.Invalidate()
	c.wg.Wait()
}

// --- helpers ---

func (c *Controller) fail(day int, op string, err error) error {
	c.events.Add(day, CatRequest, op+"_failed", err.Error(), 0)
	c.logger.Printf("%s: %v", op, err)
	c.view.ShowError(err)
	return err
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) day() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dayLocked()
}

func (c *Controller) dayLocked() int {
	if c.state == nil {
		return 0
	}
	return c.state.Day
}
