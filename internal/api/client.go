package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// Endpoint paths on the triage server.
const (
	PathNewPatient = "/new_patient"
	PathDecision   = "/decision"
	PathAvatar     = "/avatar"
	PathRestart    = "/restart"
	PathAnalytics  = "/analytics_data"
	PathExport     = "/export"
)

// maxJSONBody caps decoded response bodies.
const maxJSONBody = 4 << 20

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client talks to one triage server. The server keys game state on a session
// cookie, so every Client carries its own cookie jar and therefore its own game.
type Client struct {
	base *url.URL
	http *http.Client
	now  func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithNow overrides the clock used for the avatar cache-buster.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New returns a client for the server at baseURL (e.g. "http://127.0.0.1:5000").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		base: u,
		http: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Resolve turns a server-relative reference (e.g. "/static/a.png") into an
// absolute URL. Absolute and data: URLs are returned unchanged.
func (c *Client) Resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	return c.base.ResolveReference(r).String(), nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// --- Endpoints ---

// NewPatient requests the next patient, or the final result if the game ended.
func (c *Client) NewPatient(ctx context.Context) (*triage.NewPatientResponse, error) {
	var out triage.NewPatientResponse
	if err := c.doJSON(ctx, http.MethodGet, PathNewPatient, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Decide posts the player's action for the current patient.
func (c *Client) Decide(ctx context.Context, action triage.Action) (*triage.DecisionResponse, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("decide: unknown action %q", action)
	}
	var out triage.DecisionResponse
	if err := c.doJSON(ctx, http.MethodPost, PathDecision, nil, triage.DecisionRequest{Action: action}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Avatar asks the server for an avatar URL suited to the patient's age. The
// t parameter defeats intermediate caches.
func (c *Client) Avatar(ctx context.Context, age int) (*triage.AvatarResponse, error) {
	q := url.Values{}
	q.Set("age", strconv.Itoa(age))
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	var out triage.AvatarResponse
	if err := c.doJSON(ctx, http.MethodGet, PathAvatar, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Restart discards the server-side game for this session. The body is unused.
func (c *Client) Restart(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, PathRestart, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONBody))
	return nil
}

// Analytics fetches the day-by-day history and the run summary.
func (c *Client) Analytics(ctx context.Context) (*triage.AnalyticsData, error) {
	var out triage.AnalyticsData
	if err := c.doJSON(ctx, http.MethodGet, PathAnalytics, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.History == nil {
		out.History = []triage.HistoryPoint{}
	}
	return &out, nil
}

// Download is an export payload. The caller must close Body.
type Download struct {
	Format      triage.Format
	FileName    string
	ContentType string
	Body        io.ReadCloser
}

// Export requests /export?format=... and returns the streaming payload.
func (c *Client) Export(ctx context.Context, format triage.Format) (*Download, error) {
	q := url.Values{}
	q.Set("format", string(format))
	resp, err := c.do(ctx, http.MethodGet, PathExport, q, nil)
	if err != nil {
		return nil, err
	}
	return &Download{
		Format:      format,
		FileName:    format.FileName(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

// --- transport ---

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, body, out any) error {
	resp, err := c.do(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
