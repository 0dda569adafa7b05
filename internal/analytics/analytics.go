package analytics

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/draw"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Garsondee/Triage-Sense/internal/chart"
	"github.com/Garsondee/Triage-Sense/internal/export"
	"github.com/Garsondee/Triage-Sense/internal/metrics"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// Chart surface ids.
const (
	SurfaceTrust    = "chart-trust"
	SurfaceBeds     = "chart-beds"
	SurfaceOutcomes = "chart-outcomes"
)

// Series colours.
var (
	TrustColor     = chart.MustHex("#00bcd4")
	BedsColor      = chart.MustHex("#ffb74d")
	RecoveredColor = chart.MustHex("#4caf50")
	DeathsColor    = chart.MustHex("#e53935")
	StaffColor     = chart.MustHex("#ffb74d")
)

// ErrNoExporter is returned by Export when no exporter was configured.
var ErrNoExporter = errors.New("export not configured")

// OutcomeLabels names the bars of the outcomes chart.
var OutcomeLabels = []string{"Recovered", "Deaths", "Staff"}

// Formats lists the exports offered on the analytics view.
var Formats = []triage.Format{triage.FormatJSON, triage.FormatCSV}

// Source fetches analytics data from the server.
type Source interface {
	Analytics(ctx context.Context) (*triage.AnalyticsData, error)
}

// View is the analytics display: text slots for the headline metrics and
// drawable chart surfaces.
type View interface {
	metrics.Display
	// Surface returns the image for a chart id, or nil to skip that chart.
	Surface(id string) draw.Image
	ShowError(err error)
}

// --- Series ---

// Series is the chart input derived from the history and summary.
type Series struct {
	Labels   []string
	Trust    []float64
	BedsUsed []float64
	Outcomes []float64
}

// BuildSeries maps history points to day labels, trust and beds-in-use, and
// the summary to recovered/deaths/staff outcome bars.
func BuildSeries(data triage.AnalyticsData) Series {
	history := data.History
	return Series{
		Labels: lo.Map(history, func(h triage.HistoryPoint, _ int) string {
			return fmt.Sprintf("D%d", h.Day)
		}),
		Trust: lo.Map(history, func(h triage.HistoryPoint, _ int) float64 {
			return float64(h.PublicTrust)
		}),
		BedsUsed: lo.Map(history, func(h triage.HistoryPoint, _ int) float64 {
			return float64(h.BedsInUse())
		}),
		Outcomes: []float64{
			float64(data.Summary.Recovered),
			float64(data.Summary.Deaths),
			float64(data.Summary.InfectedStaff),
		},
	}
}

// Result is everything one Load produced.
type Result struct {
	Data   triage.AnalyticsData
	Series Series
	Panel  metrics.Panel
}

// Render writes metrics and draws all three charts onto v.
func Render(v View, data triage.AnalyticsData) Result {
	s := BuildSeries(data)
	panel := metrics.UpdateMetrics(v, data.Summary)

	if dst := v.Surface(SurfaceTrust); dst != nil {
		chart.DrawLineChart(dst, s.Labels, s.Trust, chart.Options{Color: TrustColor})
	}
	if dst := v.Surface(SurfaceBeds); dst != nil {
		chart.DrawLineChart(dst, s.Labels, s.BedsUsed, chart.Options{Color: BedsColor})
	}
	if dst := v.Surface(SurfaceOutcomes); dst != nil {
		chart.DrawBarChart(dst, OutcomeLabels, s.Outcomes, chart.Options{
			Colors: []color.Color{RecoveredColor, DeathsColor, StaffColor},
		})
	}
	return Result{Data: data, Series: s, Panel: panel}
}

// --- Controller ---

// Controller loads analytics data and renders it.
type Controller struct {
	id       string
	src      Source
	view     View
	exporter *export.Exporter
	logger   *log.Logger

	mu   sync.Mutex
	last *Result
}

// Option configures a Controller.
type Option func(*Controller)

// WithExporter enables Export.
func WithExporter(e *export.Exporter) Option {
	return func(c *Controller) {
		c.exporter = e
	}
}

// WithLogOutput directs log lines to w.
func WithLogOutput(w io.Writer) Option {
	return func(c *Controller) {
		c.logger.SetOutput(w)
	}
}

// New returns an analytics controller drawing onto view.
func New(src Source, view View, opts ...Option) *Controller {
	id := uuid.NewString()
	c := &Controller{
		id:     id,
		src:    src,
		view:   view,
		logger: log.New(log.Writer(), "[analytics "+id[:8]+"] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches /analytics_data once and renders metrics and charts.
func (c *Controller) Load(ctx context.Context) (*Result, error) {
	data, err := c.src.Analytics(ctx)
	if err != nil {
		c.logger.Printf("load: %v", err)
		c.view.ShowError(err)
		return nil, err
	}
	if data.History == nil {
		data.History = []triage.HistoryPoint{}
	}
	res := Render(c.view, *data)

	c.mu.Lock()
	c.last = &res
	c.mu.Unlock()
	return &res, nil
}

// Last returns the most recent successful Load, or nil.
func (c *Controller) Last() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Export downloads the summary. The exporter decides which formats are
// allowed and reports rejections; build it WithFormats(Formats...) to offer
// only json and csv.
func (c *Controller) Export(ctx context.Context, format triage.Format) (export.Result, error) {
	if c.exporter == nil {
		return export.Result{}, ErrNoExporter
	}
	return c.exporter.Download(ctx, format)
}

// ID returns the controller's instance id.
func (c *Controller) ID() string { return c.id }
