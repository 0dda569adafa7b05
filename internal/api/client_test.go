package api

import (
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Garsondee/Triage-Sense/internal/triage"
	"github.com/Garsondee/Triage-Sense/internal/triagetest"
)

func newClient(t *testing.T, srv *triagetest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RejectsBadScheme(t *testing.T) {
	if _, err := New("ftp://example.org"); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}

func TestClient_SessionCookieKeepsOneGame(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	first, err := c.NewPatient(ctx)
	if err != nil {
		t.Fatalf("NewPatient: %v", err)
	}
	if first.GameOver || first.Patient == nil || first.State == nil {
		t.Fatalf("expected a patient and state, got %+v", first)
	}
	if _, err := c.Decide(ctx, triage.ActionIsolate); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if srv.Games() != 1 {
		t.Fatalf("expected one server-side game, got %d", srv.Games())
	}

	data, err := c.Analytics(ctx)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if data.Summary.Day != 2 {
		t.Fatalf("expected day 2 after one decision, got %d", data.Summary.Day)
	}
}

func TestClient_DecideSendsActionBody(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	if _, err := c.Decide(context.Background(), triage.ActionAdmit); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Method != http.MethodPost || last.Path != PathDecision {
		t.Fatalf("expected POST /decision, got %s %s", last.Method, last.Path)
	}
	if !strings.Contains(last.Body, `"action":"Admit"`) {
		t.Fatalf("expected action in body, got %s", last.Body)
	}
}

func TestClient_DecideRejectsUnknownAction(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	if _, err := c.Decide(context.Background(), triage.Action("Ignore")); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if srv.Count(PathDecision) != 0 {
		t.Fatal("unknown action must not reach the server")
	}
}

func TestClient_AvatarCacheBuster(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	fixed := time.UnixMilli(1700000000123)
	c := newClient(t, srv, WithNow(func() time.Time { return fixed }))

	resp, err := c.Avatar(context.Background(), 42)
	if err != nil {
		t.Fatalf("Avatar: %v", err)
	}
	if resp.URL != triagetest.AvatarPath {
		t.Fatalf("expected %s, got %s", triagetest.AvatarPath, resp.URL)
	}
	q := srv.Requests()[0].Query
	if q.Get("age") != "42" || q.Get("t") != "1700000000123" {
		t.Fatalf("unexpected avatar query %v", q)
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := triagetest.NewServer(triagetest.WithStatus(http.MethodGet, PathNewPatient, http.StatusServiceUnavailable))
	defer srv.Close()
	c := newClient(t, srv)

	_, err := c.NewPatient(context.Background())
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("expected 503 StatusError, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Path != PathNewPatient {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestClient_DecodeErrorWrapped(t *testing.T) {
	srv := triagetest.NewServer(triagetest.WithHandler(http.MethodGet, PathAnalytics, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte("{not json"))
	}))
	defer srv.Close()
	c := newClient(t, srv)

	_, err := c.Analytics(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestClient_AnalyticsDefaultsHistory(t *testing.T) {
	srv := triagetest.NewServer(triagetest.WithHandler(http.MethodGet, PathAnalytics, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"summary": gin.H{"rating": "Mixed"}})
	}))
	defer srv.Close()
	c := newClient(t, srv)

	data, err := c.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if data.History == nil || len(data.History) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", data.History)
	}
	if data.Summary.Rating != "Mixed" {
		t.Fatalf("expected Mixed, got %q", data.Summary.Rating)
	}
}

func TestClient_ExportStreamsBody(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	d, err := c.Export(context.Background(), triage.FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer d.Body.Close()
	body, _ := io.ReadAll(d.Body)
	if !strings.HasPrefix(string(body), "rating,narrative,day") {
		t.Fatalf("unexpected csv body %q", body)
	}
	if d.FileName != "triage-summary.csv" {
		t.Fatalf("expected triage-summary.csv, got %s", d.FileName)
	}
	if q := srv.Requests()[0].Query.Get("format"); q != "csv" {
		t.Fatalf("expected format=csv, got %q", q)
	}
}

func TestClient_RestartStartsFreshGame(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	if _, err := c.NewPatient(ctx); err != nil {
		t.Fatalf("NewPatient: %v", err)
	}
	if _, err := c.Decide(ctx, triage.ActionDischarge); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if err := c.Restart(ctx); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	resp, err := c.NewPatient(ctx)
	if err != nil {
		t.Fatalf("NewPatient: %v", err)
	}
	if resp.State.Day != 1 || resp.State.PatientsTreated != 0 {
		t.Fatalf("expected fresh game after restart, got %+v", resp.State)
	}
}

// --- images ---

func TestFetchImage_RelativePNG(t *testing.T) {
	srv := triagetest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	img, err := c.FetchImage(context.Background(), triagetest.AvatarPath)
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Fatalf("expected 8px avatar, got %v", img.Bounds())
	}
	r, g, b, _ := img.At(3, 3).RGBA()
	want := triagetest.AvatarColor
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Fatalf("expected %v, got %v", want, color.RGBAModel.Convert(img.At(3, 3)))
	}
}

// avatarSVG has the shape of the server's generated fallback avatar.
const avatarSVG = `<svg xmlns='http://www.w3.org/2000/svg' width='160' height='160' viewBox='0 0 160 160'>
    <defs>
      <linearGradient id='bg' x1='0' y1='0' x2='1' y2='1'>
        <stop offset='0' stop-color='#18c4d6'/>
        <stop offset='1' stop-color='#0b7aa5'/>
      </linearGradient>
      <radialGradient id='face' cx='50%' cy='40%' r='60%'>
        <stop offset='0' stop-color='#ffffff' stop-opacity='0.45'/>
        <stop offset='1' stop-color='#e6b089'/>
      </radialGradient>
    </defs>
    <rect x='6' y='6' width='148' height='148' rx='28' fill='url(#bg)'/>
    <rect x='14' y='14' width='132' height='132' rx='24' fill='rgba(255,255,255,0.08)'/>
    <ellipse cx='80' cy='118' rx='52' ry='26' fill='#e3f2fd' opacity='0.9'/>
    <ellipse cx='80' cy='128' rx='64' ry='30' fill='rgba(0,0,0,0.18)'/>
    <circle cx='80' cy='76' r='36' fill='url(#face)'/>
    <path d='M40 68 C46 40, 114 40, 120 68' fill='#4b2e19'/>
    <circle cx='66' cy='76' r='5' fill='#2b2b2b'/>
    <circle cx='94' cy='76' r='5' fill='#2b2b2b'/>
    <rect x='68' y='92' width='24' height='10' rx='5' fill='#2b2b2b' opacity='0.7'/>
    </svg>`

func TestFetchImage_SVGDataURLRasterized(t *testing.T) {
	c, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	refs := map[string]string{
		"utf8":   "data:image/svg+xml;utf8," + url.PathEscape(avatarSVG),
		"base64": "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(avatarSVG)),
	}
	for name, ref := range refs {
		img, err := c.FetchImage(context.Background(), ref)
		if err != nil {
			t.Fatalf("%s: FetchImage: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 160 {
			t.Fatalf("%s: expected 160x160, got %v", name, b)
		}
		if _, _, _, a := img.At(80, 80).RGBA(); a == 0 {
			t.Fatalf("%s: expected the face drawn at the centre", name)
		}
		if _, _, _, a := img.At(1, 1).RGBA(); a != 0 {
			t.Fatalf("%s: expected a transparent corner outside the card", name)
		}
	}
}

func TestFetchImage_SVGOverHTTP(t *testing.T) {
	srv := triagetest.NewServer(triagetest.WithHandler(http.MethodGet, triagetest.AvatarPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "image/svg+xml", []byte(avatarSVG))
	}))
	defer srv.Close()
	c := newClient(t, srv)

	img, err := c.FetchImage(context.Background(), triagetest.AvatarPath)
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if img.Bounds().Dx() != 160 {
		t.Fatalf("expected 160px avatar, got %v", img.Bounds())
	}
}

func TestFetchImage_BrokenSVGUnsupported(t *testing.T) {
	c, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.FetchImage(context.Background(), "data:image/svg+xml;utf8,"+url.PathEscape("<svg><rect"))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestRewriteRGBA(t *testing.T) {
	got := string(rewriteRGBA([]byte(`<rect fill='rgba(255, 255,255,0.08)'/><path stroke="rgba(0,0,0,0.5)"/>`)))
	want := `<rect fill='#ffffff' fill-opacity='0.08'/><path stroke='#000000' stroke-opacity='0.5'/>`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFetchImage_GarbageUnsupported(t *testing.T) {
	c, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.FetchImage(context.Background(), "data:application/octet-stream,hello")
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	c, err := New("http://127.0.0.1:5000/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Resolve("/static/a.png")
	if err != nil || got != "http://127.0.0.1:5000/static/a.png" {
		t.Fatalf("expected resolved url, got %q (err=%v)", got, err)
	}
	abs := "https://cdn.example.org/x.png"
	if got, _ := c.Resolve(abs); got != abs {
		t.Fatalf("absolute url should be unchanged, got %q", got)
	}
}
