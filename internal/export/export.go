package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"

	"github.com/Garsondee/Triage-Sense/internal/api"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// FailureMessage is what both views show when a download fails.
const FailureMessage = "Unable to download report."

// ErrFormatNotAllowed is returned for formats the calling view does not offer.
var ErrFormatNotAllowed = errors.New("export format not offered here")

// Source fetches an export payload from the server.
type Source interface {
	Export(ctx context.Context, format triage.Format) (*api.Download, error)
}

// Sink persists a downloaded file and returns where it went.
type Sink interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (location string, err error)
}

// Reporter is told about every failed download.
type Reporter interface {
	ReportExportFailure(format triage.Format, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(format triage.Format, err error)

func (f ReporterFunc) ReportExportFailure(format triage.Format, err error) { f(format, err) }

// Result describes a completed download.
type Result struct {
	Format   triage.Format
	FileName string
	Location string
}

// Exporter downloads summaries in the formats one view offers.
type Exporter struct {
	src      Source
	sink     Sink
	formats  []triage.Format
	reporter Reporter
	logger   *log.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFormats restricts the formats the exporter accepts. The default is
// every format the server produces.
func WithFormats(formats ...triage.Format) Option {
	return func(e *Exporter) {
		e.formats = append([]triage.Format(nil), formats...)
	}
}

// WithReporter sets the failure reporter.
func WithReporter(r Reporter) Option {
	return func(e *Exporter) {
		e.reporter = r
	}
}

// WithLogger sets the logger for download outcomes.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) {
		e.logger = l
	}
}

// New returns an exporter reading from src and writing to sink.
func New(src Source, sink Sink, opts ...Option) *Exporter {
	e := &Exporter{
		src:     src,
		sink:    sink,
		formats: []triage.Format{triage.FormatJSON, triage.FormatCSV, triage.FormatXLSX},
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Formats returns the accepted formats in offer order.
func (e *Exporter) Formats() []triage.Format {
	return append([]triage.Format(nil), e.formats...)
}

// Allows reports whether format is offered.
func (e *Exporter) Allows(format triage.Format) bool {
	return slices.Contains(e.formats, format)
}

// Download requests /export?format=<format> and saves the body as
// triage-summary.<format>. Every failure is passed to the reporter and returned.
func (e *Exporter) Download(ctx context.Context, format triage.Format) (Result, error) {
	res, err := e.download(ctx, format)
	if err != nil {
		e.logger.Printf("export %s failed: %v", format, err)
		if e.reporter != nil {
			e.reporter.ReportExportFailure(format, err)
		}
		return Result{}, err
	}
	e.logger.Printf("export %s saved to %s", format, res.Location)
	return res, nil
}

func (e *Exporter) download(ctx context.Context, format triage.Format) (Result, error) {
	if !e.Allows(format) {
		return Result{}, fmt.Errorf("%w: %q", ErrFormatNotAllowed, format)
	}
	d, err := e.src.Export(ctx, format)
	if err != nil {
		return Result{}, fmt.Errorf("export %s: %w", format, err)
	}
	defer d.Body.Close()

	loc, err := e.sink.Save(ctx, d.FileName, d.ContentType, d.Body)
	if err != nil {
		return Result{}, fmt.Errorf("save %s: %w", d.FileName, err)
	}
	return Result{Format: format, FileName: d.FileName, Location: loc}, nil
}
