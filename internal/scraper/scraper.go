package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html/charset"

	"psp.com/arbitro-quiz/internal/quiz"
)

const (
	DefaultBaseURL = "https://www.clubdelarbitro.com/Tests"
	userAgent      = "Mozilla/5.0 (compatible; ArbitroQuiz/1.0)"

	configPath = "/configurarTestAnonimo.php?ins=0&pub=1"
	actionPath = "/mostrarTestAnonimo.php?ins=0"
	gradePath  = "/testAnonimo2.php?ins=0"

	submitLabel = "Corregir test"
)

// Transport is the remote quiz service. Every call names the session it
// belongs to; implementations keep no per-session state of their own.
type Transport interface {
	StartSession(ctx context.Context, kind string, count int) (*Session, error)
	FetchQuiz(ctx context.Context, s *Session) (string, error)
	SubmitAnswers(ctx context.Context, s *Session, questions []quiz.Question, choices []int) (string, error)
}

// Session is the handle for one anonymous quiz on the remote site.
type Session struct {
	ID      string
	Kind    string
	Count   int
	Started time.Time

	jar http.CookieJar
}

// NewSession returns a handle with an empty cookie jar.
func NewSession(kind string, count int) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{ID: uuid.NewString(), Kind: kind, Count: count, Started: time.Now(), jar: jar}
}

// Client talks to the quiz site over HTTP.
type Client struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Trace receives every raw response body when set.
	Trace  io.Writer
	Logger *slog.Logger
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Timeout:   timeout,
		Logger:    slog.Default(),
	}
}

func (c *Client) configURL() string { return c.BaseURL + configPath }
func (c *Client) actionURL() string { return c.BaseURL + actionPath }
func (c *Client) gradeURL() string  { return c.BaseURL + gradePath }

// StartSession loads the configuration page so the site sets its cookies.
func (c *Client) StartSession(ctx context.Context, kind string, count int) (*Session, error) {
	s := NewSession(kind, count)
	if _, err := c.do(ctx, s, http.MethodGet, c.configURL(), nil, ""); err != nil {
		return nil, err
	}
	c.logger().Debug("session started", "session", s.ID, "tipo", kind, "preguntas", count)
	return s, nil
}

// FetchQuiz asks the site to generate the quiz and returns its markup.
func (c *Client) FetchQuiz(ctx context.Context, s *Session) (string, error) {
	form := url.Values{}
	form.Set("tipo", s.Kind)
	form.Set("preguntas", strconv.Itoa(s.Count))
	return c.do(ctx, s, http.MethodPost, c.actionURL(), form, c.configURL())
}

// SubmitAnswers posts one answer vector and returns the result markup.
func (c *Client) SubmitAnswers(ctx context.Context, s *Session, questions []quiz.Question, choices []int) (string, error) {
	return c.do(ctx, s, http.MethodPost, c.gradeURL(), AnswerForm(s, questions, choices), c.actionURL())
}

// AnswerForm builds the grading form. Missing or out-of-range choices are
// clamped to a valid option.
func AnswerForm(s *Session, questions []quiz.Question, choices []int) url.Values {
	form := url.Values{}
	form.Set("tipo", s.Kind)
	form.Set("preguntas", strconv.Itoa(s.Count))
	form.Set("enviar", submitLabel)
	for i, q := range questions {
		form.Set(fmt.Sprintf("id%d", q.Index), q.ID)
		if len(q.Options) == 0 {
			continue
		}
		pos := 0
		if i < len(choices) {
			pos = min(max(choices[i], 0), len(q.Options)-1)
		}
		form.Set(fmt.Sprintf("opcion%d", q.Index), q.Options[pos].Value)
	}
	return form
}

func (c *Client) do(ctx context.Context, s *Session, method, target string, form url.Values, referer string) (string, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", &TransportError{Op: method, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	hc := &http.Client{Timeout: c.Timeout, Jar: s.jar}
	resp, err := hc.Do(req)
	if err != nil {
		return "", &TransportError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{Op: method, URL: target, Status: resp.StatusCode}
	}

	// The site historically serves Latin-1; decode to UTF-8 without loss.
	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &TransportError{Op: method, URL: target, Err: err}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", &TransportError{Op: method, URL: target, Err: err}
	}
	markup := string(raw)
	if c.Trace != nil {
		fmt.Fprintf(c.Trace, "----- %s %s (session %s)\n%s\n", method, target, s.ID, markup)
	}
	return markup, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
