// Package gateway talks to the panel backend: session setup, response
// upload, session summary and transcript download.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/panelsim/panelsim/internal/session"
)

// Endpoint paths on the backend.
const (
	PathSetup      = "/upload_report_and_setup"
	PathText       = "/respond_to_executive"
	PathAudio      = "/respond_to_executive_audio"
	PathEndSession = "/end_session"
	PathTranscript = "/download_transcript"
	PathHealth     = "/health"
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	TextEndpoint string
	Timeout      time.Duration
}

// Client is the backend gateway. The backend keys its session on a cookie,
// so one Client serves exactly one interview.
type Client struct {
	base     *url.URL
	textPath string
	http     *http.Client
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	textPath := cfg.TextEndpoint
	if textPath == "" {
		textPath = PathText
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		base:     base,
		textPath: textPath,
		http:     &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Resolve turns a backend-relative reference such as a tts_url into an
// absolute URL.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", ref, err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, PathHealth, nil)
	if err != nil {
		return err
	}
	var reply healthReply
	if err := c.doJSON(req, &reply); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// Setup uploads the report and session parameters and returns the first prompt.
func (c *Client) Setup(ctx context.Context, sr SetupRequest) (session.Prompt, error) {
	if err := sr.Budget.Validate(); err != nil {
		return session.Prompt{}, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := []struct{ k, v string }{
		{"session_type", string(sr.Budget.Kind)},
		{"company_name", sr.CompanyName},
		{"industry", sr.Industry},
		{"report_type", sr.ReportType},
		{"allow_followups", strconv.FormatBool(sr.AllowFollowUps)},
		{"enable_web_research", strconv.FormatBool(sr.EnableWebResearch)},
	}
	if sr.Budget.Timed() {
		fields = append(fields, struct{ k, v string }{"time_limit", strconv.Itoa(sr.Budget.Minutes)})
	} else {
		fields = append(fields, struct{ k, v string }{"question_limit", strconv.Itoa(sr.Budget.Questions)})
	}
	for _, f := range fields {
		if err := w.WriteField(f.k, f.v); err != nil {
			return session.Prompt{}, fmt.Errorf("writing field %s: %w", f.k, err)
		}
	}
	for _, e := range sr.Executives {
		if err := w.WriteField("executives", e); err != nil {
			return session.Prompt{}, fmt.Errorf("writing executives: %w", err)
		}
	}

	name := sr.ReportName
	if name == "" {
		name = "report.pdf"
	}
	part, err := createFilePart(w, "report", name, "application/pdf")
	if err != nil {
		return session.Prompt{}, err
	}
	if _, err := part.Write(sr.Report); err != nil {
		return session.Prompt{}, fmt.Errorf("writing report: %w", err)
	}
	if err := w.Close(); err != nil {
		return session.Prompt{}, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathSetup, &body)
	if err != nil {
		return session.Prompt{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var reply setupReply
	if err := c.doJSON(req, &reply); err != nil {
		return session.Prompt{}, fmt.Errorf("session setup: %w", err)
	}
	if reply.Status != "success" {
		return session.Prompt{}, fmt.Errorf("session setup: %w", &ServerError{Status: http.StatusOK, Message: reply.Error})
	}
	if reply.FirstQuestion == nil || !reply.FirstQuestion.valid() {
		return session.Prompt{}, fmt.Errorf("session setup: %w: missing first_question", ErrMalformedResponse)
	}
	return reply.FirstQuestion.prompt(), nil
}

// Submit uploads one response addressed to the panelist of prompt. It is
// never retried here; on ErrUploadFailed the caller may call Submit again
// with the same response.
func (c *Client) Submit(ctx context.Context, prompt session.Prompt, resp Response) (TurnResult, error) {
	var (
		req *http.Request
		err error
	)
	if resp.IsAudio() {
		req, err = c.audioRequest(ctx, prompt, resp)
	} else {
		req, err = c.textRequest(ctx, prompt, resp)
	}
	if err != nil {
		return TurnResult{}, err
	}

	var reply turnReply
	if err := c.doJSON(req, &reply); err != nil {
		return TurnResult{}, fmt.Errorf("submit response: %w", err)
	}
	return normalize(reply, resp.IsAudio())
}

func (c *Client) textRequest(ctx context.Context, prompt session.Prompt, resp Response) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{
		"response":       resp.TextValue(),
		"executive_role": prompt.Executive,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.textPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) audioRequest(ctx context.Context, prompt session.Prompt, resp Response) (*http.Request, error) {
	p := resp.Payload()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := createFilePart(w, "audio", p.Filename(), p.MediaType())
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, p.Reader()); err != nil {
		return nil, fmt.Errorf("writing audio: %w", err)
	}
	if err := w.WriteField("executive_role", prompt.Executive); err != nil {
		return nil, fmt.Errorf("writing executive_role: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathAudio, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

// normalize validates a turn reply and converts it to a TurnResult.
func normalize(reply turnReply, audio bool) (TurnResult, error) {
	if reply.Status != "success" {
		return TurnResult{}, &ServerError{Status: http.StatusOK, Message: reply.Error}
	}

	var result TurnResult
	result.SessionEnding = reply.SessionEnding
	if audio {
		result.Transcription = reply.Transcription
	}

	if reply.FollowUp != nil {
		if !reply.FollowUp.valid() {
			return TurnResult{}, fmt.Errorf("%w: follow_up lacks executive or question", ErrMalformedResponse)
		}
		p := reply.FollowUp.prompt()
		result.NextPrompt = &p
	}

	if result.NextPrompt == nil && !result.SessionEnding {
		return TurnResult{}, fmt.Errorf("%w: neither follow_up nor session_ending", ErrMalformedResponse)
	}
	return result, nil
}

// EndSession asks the backend for the session summary.
func (c *Client) EndSession(ctx context.Context) (Summary, error) {
	req, err := c.newRequest(ctx, http.MethodPost, PathEndSession, nil)
	if err != nil {
		return Summary{}, err
	}

	var reply endReply
	if err := c.doJSON(req, &reply); err != nil {
		return Summary{}, fmt.Errorf("end session: %w", err)
	}
	if reply.Status != "success" {
		return Summary{}, fmt.Errorf("end session: %w", &ServerError{Status: http.StatusOK, Message: reply.Error})
	}
	if reply.Summary == nil {
		return Summary{}, fmt.Errorf("end session: %w: missing summary", ErrMalformedResponse)
	}
	return *reply.Summary, nil
}

// DownloadTranscript streams the finished transcript into w and returns
// the number of bytes written.
func (c *Client) DownloadTranscript(ctx context.Context, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, PathTranscript, nil)
	if err != nil {
		return 0, err
	}
	rsp, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("download transcript: %w", err)
	}
	defer func() { _ = rsp.Body.Close() }()

	n, err := io.Copy(w, rsp.Body)
	if err != nil {
		return n, fmt.Errorf("download transcript: %w: %v", ErrUploadFailed, err)
	}
	return n, nil
}

// Fetch GETs a backend-relative or absolute URL, such as a tts_url. The
// caller closes the body.
func (c *Client) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	abs, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, abs, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	rsp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	return rsp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// do sends req and returns the response when the status is 2xx. Other
// statuses are turned into a ServerError carrying the backend's message.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	rsp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if rsp.StatusCode >= 200 && rsp.StatusCode < 300 {
		return rsp, nil
	}
	defer func() { _ = rsp.Body.Close() }()

	se := &ServerError{Status: rsp.StatusCode}
	var reply struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(rsp.Body, 64<<10))
	if json.Unmarshal(data, &reply) == nil {
		se.Message = reply.Error
	}
	return nil, se
}

func (c *Client) doJSON(req *http.Request, out any) error {
	rsp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = rsp.Body.Close() }()

	if err := json.NewDecoder(rsp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformedResponse)
		}
		return fmt.Errorf("%w: decoding body: %v", ErrUploadFailed, err)
	}
	return nil
}

func createFilePart(w *multipart.Writer, field, filename, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating %s part: %w", field, err)
	}
	return part, nil
}
