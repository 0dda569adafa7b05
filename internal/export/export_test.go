package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Garsondee/Triage-Sense/internal/api"
	"github.com/Garsondee/Triage-Sense/internal/triage"
	"github.com/Garsondee/Triage-Sense/internal/triagetest"
)

type recordingReporter struct {
	mu     sync.Mutex
	failed []triage.Format
}

func (r *recordingReporter) ReportExportFailure(f triage.Format, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, f)
}

func newSource(t *testing.T, srv *triagetest.Server) *api.Client {
	t.Helper()
	c, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return c
}

func TestDownload_CSVRequestAndFileName(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	dir := t.TempDir()

	e := New(newSource(t, srv), DirSink{Dir: dir})
	res, err := e.Download(context.Background(), triage.FormatCSV)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 || reqs[0].Path != "/export" || reqs[0].Query.Get("format") != "csv" {
		t.Fatalf("expected one GET /export?format=csv, got %+v", reqs)
	}
	if res.FileName != "triage-summary.csv" {
		t.Fatalf("expected triage-summary.csv, got %s", res.FileName)
	}
	want := filepath.Join(dir, "triage-summary.csv")
	if res.Location != want {
		t.Fatalf("expected location %s, got %s", want, res.Location)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !strings.HasPrefix(string(data), "rating,") {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestDownload_DisallowedFormatReported(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	rep := &recordingReporter{}

	e := New(newSource(t, srv), DirSink{Dir: t.TempDir()},
		WithFormats(triage.FormatJSON, triage.FormatCSV), WithReporter(rep))
	_, err := e.Download(context.Background(), triage.FormatXLSX)
	if !errors.Is(err, ErrFormatNotAllowed) {
		t.Fatalf("expected ErrFormatNotAllowed, got %v", err)
	}
	if srv.Count("/export") != 0 {
		t.Fatal("disallowed format must not reach the server")
	}
	if len(rep.failed) != 1 || rep.failed[0] != triage.FormatXLSX {
		t.Fatalf("expected one reported xlsx failure, got %v", rep.failed)
	}
}

func TestDownload_ServerErrorReported(t *testing.T) {
	srv := triagetest.NewServer(triagetest.WithStatus(http.MethodGet, "/export", http.StatusInternalServerError))
	defer srv.Close()
	rep := &recordingReporter{}

	e := New(newSource(t, srv), DirSink{Dir: t.TempDir()}, WithReporter(rep))
	_, err := e.Download(context.Background(), triage.FormatJSON)
	if !api.IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected wrapped 500, got %v", err)
	}
	if len(rep.failed) != 1 {
		t.Fatalf("expected failure to be reported once, got %d", len(rep.failed))
	}
}

func TestExporter_Formats(t *testing.T) {
	e := New(nil, nil, WithFormats(triage.FormatJSON, triage.FormatCSV))
	if !e.Allows(triage.FormatCSV) || e.Allows(triage.FormatXLSX) {
		t.Fatalf("unexpected allowed set %v", e.Formats())
	}
	if got := New(nil, nil).Formats(); len(got) != 3 {
		t.Fatalf("default should offer 3 formats, got %v", got)
	}
}

// --- sinks ---

func TestDirSink_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	s := DirSink{Dir: dir}
	ctx := context.Background()
	if _, err := s.Save(ctx, "a.json", "", strings.NewReader("old")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	loc, err := s.Save(ctx, "a.json", "", strings.NewReader("new"))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	data, _ := os.ReadFile(loc)
	if string(data) != "new" {
		t.Fatalf("expected replaced content, got %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files should be cleaned up, found %d entries", len(entries))
	}
}

func TestDirSink_RejectsPathNames(t *testing.T) {
	s := DirSink{Dir: t.TempDir()}
	if _, err := s.Save(context.Background(), "../escape.csv", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for path traversal name")
	}
}

type fakeS3 struct {
	mu    sync.Mutex
	keys  []string
	types []string
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, *in.Key)
	f.types = append(f.types, *in.ContentType)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink_KeyLayout(t *testing.T) {
	fake := &fakeS3{}
	s := &S3Sink{
		Client: fake,
		Bucket: "reports",
		Prefix: "/triage/",
		Now:    func() time.Time { return time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC) },
		NewID:  func() string { return "run-1" },
	}
	loc, err := s.Save(context.Background(), "triage-summary.json", "application/json", strings.NewReader(`{"summary":{}}`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	wantKey := "triage/2026-03-09/run-1/triage-summary.json"
	if fake.keys[0] != wantKey {
		t.Fatalf("expected key %s, got %s", wantKey, fake.keys[0])
	}
	if loc != "s3://reports/"+wantKey {
		t.Fatalf("unexpected location %s", loc)
	}
	if fake.types[0] != "application/json" {
		t.Fatalf("expected content type passed through, got %s", fake.types[0])
	}
}

func TestS3Sink_PutErrorWrapped(t *testing.T) {
	boom := errors.New("access denied")
	s := &S3Sink{Client: &fakeS3{err: boom}, Bucket: "b"}
	_, err := s.Save(context.Background(), "x.csv", "text/csv", strings.NewReader("a"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped put error, got %v", err)
	}
}

func TestMultiSink_WritesEverySink(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeS3{}
	m := MultiSink{DirSink{Dir: dir}, &S3Sink{Client: fake, Bucket: "b"}}
	loc, err := m.Save(context.Background(), "triage-summary.csv", "text/csv", bytes.NewReader([]byte("rating\nHero\n")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if loc != filepath.Join(dir, "triage-summary.csv") {
		t.Fatalf("expected first sink location, got %s", loc)
	}
	if string(fake.body) != "rating\nHero\n" {
		t.Fatalf("second sink should receive the same bytes, got %q", fake.body)
	}
}
