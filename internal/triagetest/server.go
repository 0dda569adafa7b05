package triagetest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// SessionCookie names the cookie that keys a game on the fake server.
const SessionCookie = "triage_session"

// AvatarPath is where the fake server serves its PNG avatar.
const AvatarPath = "/static/avatars/default.png"

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
}

// Server is an in-process triage server for tests. It plays the game with
// deterministic rules and records every request.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	games     map[string]*hospital
	requests  []Request
	beds      int
	dayLimit  int
	patients  []triage.Patient
	avatarURL string
	overrides map[string]gin.HandlerFunc
}

// Option configures a Server.
type Option func(*Server)

// WithBeds sets the bed pool of new games.
func WithBeds(n int) Option {
	return func(s *Server) {
		s.beds = n
	}
}

// WithDayLimit sets the number of decisions before the game ends.
func WithDayLimit(n int) Option {
	return func(s *Server) {
		s.dayLimit = n
	}
}

// WithPatients scripts the patient sequence. It cycles when exhausted.
func WithPatients(ps ...triage.Patient) Option {
	return func(s *Server) {
		s.patients = append([]triage.Patient(nil), ps...)
	}
}

// WithAvatarURL makes /avatar return u instead of the served PNG.
func WithAvatarURL(u string) Option {
	return func(s *Server) {
		s.avatarURL = u
	}
}

// WithHandler replaces the handler for one route, e.g. to inject failures.
func WithHandler(method, path string, h gin.HandlerFunc) Option {
	return func(s *Server) {
		s.overrides[method+" "+path] = h
	}
}

// WithStatus makes a route answer with a bare status code.
func WithStatus(method, path string, code int) Option {
	return WithHandler(method, path, func(c *gin.Context) {
		c.String(code, http.StatusText(code))
	})
}

// NewServer starts a fake server. Close it when done.
func NewServer(opts ...Option) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		games:     make(map[string]*hospital),
		beds:      10,
		dayLimit:  DefaultDayLimit,
		patients:  DefaultPatients(),
		avatarURL: AvatarPath,
		overrides: make(map[string]gin.HandlerFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.record)

	s.route(r, http.MethodGet, "/new_patient", s.newPatient)
	s.route(r, http.MethodPost, "/decision", s.decision)
	s.route(r, http.MethodGet, "/avatar", s.avatar)
	s.route(r, http.MethodPost, "/restart", s.restart)
	s.route(r, http.MethodGet, "/analytics_data", s.analytics)
	s.route(r, http.MethodGet, "/export", s.export)
	s.route(r, http.MethodGet, AvatarPath, s.avatarImage)
	return r
}

func (s *Server) route(r *gin.Engine, method, path string, h gin.HandlerFunc) {
	if o, ok := s.overrides[method+" "+path]; ok {
		h = o
	}
	r.Handle(method, path, h)
}

// --- Recorder ---

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Body:   string(body),
	})
	s.mu.Unlock()
	c.Next()
}

// Requests returns a copy of every recorded request, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Paths returns "METHOD /path" for every recorded request.
func (s *Server) Paths() []string {
	reqs := s.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Method + " " + r.Path
	}
	return out
}

// Count returns how many requests hit path.
func (s *Server) Count(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Games returns the number of live sessions.
func (s *Server) Games() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// --- Handlers ---

// game returns the caller's session game, creating one when needed.
// The caller must hold s.mu.
func (s *Server) game(c *gin.Context) *hospital {
	id, err := c.Cookie(SessionCookie)
	if err == nil {
		if h, ok := s.games[id]; ok {
			return h
		}
	}
	return s.newGame(c)
}

func (s *Server) newGame(c *gin.Context) *hospital {
	id := uuid.NewString()
	c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
	h := newHospital(s.beds, s.dayLimit, s.patients)
	s.games[id] = h
	return h
}

func (s *Server) newPatient(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.game(c)
	if h.gameOver {
		c.JSON(http.StatusOK, triage.NewPatientResponse{GameOver: true, Final: h.final()})
		return
	}
	p := h.nextPatient()
	st := h.state()
	c.JSON(http.StatusOK, triage.NewPatientResponse{Patient: &p, State: &st})
}

func (s *Server) decision(c *gin.Context) {
	var req triage.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.game(c)
	if h.gameOver {
		c.JSON(http.StatusOK, triage.DecisionResponse{GameOver: true, Final: h.final()})
		return
	}
	msg := h.decide(req.Action)
	if h.gameOver {
		c.JSON(http.StatusOK, triage.DecisionResponse{GameOver: true, Final: h.final(), Message: msg})
		return
	}
	p := h.nextPatient()
	st := h.state()
	c.JSON(http.StatusOK, triage.DecisionResponse{Message: msg, Patient: &p, State: &st})
}

func (s *Server) avatar(c *gin.Context) {
	s.mu.Lock()
	u := s.avatarURL
	s.mu.Unlock()
	c.JSON(http.StatusOK, triage.AvatarResponse{URL: u})
}

func (s *Server) restart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, err := c.Cookie(SessionCookie); err == nil {
		delete(s.games, id)
	}
	s.newGame(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) analytics(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.game(c)
	c.JSON(http.StatusOK, triage.AnalyticsData{
		History: append([]triage.HistoryPoint(nil), h.history...),
		Summary: h.summary(),
	})
}

var exportHeaders = []string{
	"rating", "narrative", "day", "available_beds", "total_beds",
	"patients_treated", "deaths", "recovered", "infected_staff", "public_trust",
}

func (s *Server) export(c *gin.Context) {
	s.mu.Lock()
	sum := s.game(c).summary()
	s.mu.Unlock()

	format := strings.ToLower(c.DefaultQuery("format", "json"))
	switch format {
	case "csv", "xlsx":
		values := []string{
			sum.Rating, sum.Narrative,
			fmt.Sprint(sum.Day), fmt.Sprint(sum.AvailableBeds), fmt.Sprint(sum.TotalBeds),
			fmt.Sprint(sum.PatientsTreated), fmt.Sprint(sum.Deaths), fmt.Sprint(sum.Recovered),
			fmt.Sprint(sum.InfectedStaff), fmt.Sprint(sum.PublicTrust),
		}
		body := strings.Join(exportHeaders, ",") + "\n" + strings.Join(values, ",") + "\n"
		ctype := "text/csv"
		if format == "xlsx" {
			ctype = "application/vnd.ms-excel"
		}
		c.Header("Content-Disposition", "attachment; filename=triage-summary."+format)
		c.Data(http.StatusOK, ctype, []byte(body))
	default:
		c.Header("Content-Disposition", "attachment; filename=triage-summary.json")
		c.JSON(http.StatusOK, gin.H{"summary": sum})
	}
}

func (s *Server) avatarImage(c *gin.Context) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, AvatarImage()); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// AvatarColor fills the served avatar.
var AvatarColor = color.RGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}

// AvatarImage is the 8x8 image served at AvatarPath.
func AvatarImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, AvatarColor)
		}
	}
	return img
}
