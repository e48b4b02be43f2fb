package mockbackend

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/panelsim/panelsim/internal/gateway"
	"github.com/panelsim/panelsim/internal/session"
)

// CookieName carries the session ID between requests.
const CookieName = "panelsim_session"

// PathTextAlias is the alternate text-response route older clients use.
const PathTextAlias = "/respond_to_executive_text"

// msgNoSession is the error text clients see when their session is unknown.
const msgNoSession = "Session data lost. Please restart."

var errNoSession = errors.New("no session for request")

// Options configures a Server.
type Options struct {
	// Addr is the listen address. Empty binds a random port on localhost.
	Addr string
	// Bank replaces the embedded question bank.
	Bank *Bank
	// Now replaces the wall clock, for time budgets in tests.
	Now func() time.Time
	// LogRequests enables echo's request logger.
	LogRequests bool
}

// Server is the mock panel backend.
type Server struct {
	state    *State
	bank     *Bank
	now      func() time.Time
	echo     *echo.Echo
	listener net.Listener
	server   *http.Server
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewServer creates a mock backend bound to opts.Addr.
func NewServer(opts Options) (*Server, error) {
	bank := opts.Bank
	if bank == nil {
		var err error
		if bank, err = DefaultBank(); err != nil {
			return nil, err
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	addr := opts.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mock backend: binding listener: %w", err)
	}

	s := &Server{
		state:    NewState(),
		bank:     bank,
		now:      now,
		listener: ln,
		stopCh:   make(chan struct{}),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if opts.LogRequests {
		e.Use(middleware.Logger())
	}
	s.register(e)
	s.echo = e
	s.server = &http.Server{Handler: e}
	return s, nil
}

func (s *Server) register(e *echo.Echo) {
	e.GET(gateway.PathHealth, s.handleHealth)
	e.POST(gateway.PathSetup, s.handleSetup)
	e.POST(gateway.PathText, s.handleText)
	e.POST(PathTextAlias, s.handleText)
	e.POST(gateway.PathAudio, s.handleAudio)
	e.POST(gateway.PathEndSession, s.handleEndSession)
	e.GET(gateway.PathTranscript, s.handleTranscript)
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// URL returns the base URL clients should use.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving HTTP requests. Call in a goroutine.
func (s *Server) Start() error {
	err := s.server.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes the server. It is safe to call more than once.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopCh)
		err = s.server.Close()
	})
	return err
}

// StartSessionReaper periodically drops sessions that have been idle for
// longer than maxIdle.
func (s *Server) StartSessionReaper(maxIdle, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.reapIdle(maxIdle)
			}
		}
	}()
}

func (s *Server) reapIdle(maxIdle time.Duration) int {
	now := s.now()
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	n := 0
	for id, sess := range s.state.Sessions {
		if now.Sub(sess.LastSeen) > maxIdle {
			delete(s.state.Sessions, id)
			n++
		}
	}
	return n
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return len(s.state.Sessions)
}

// --- Handlers ---

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "ai_available": false})
}

func (s *Server) handleSetup(c echo.Context) error {
	budget, err := parseBudget(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	fh, err := c.FormFile("report")
	if err != nil {
		return fail(c, http.StatusBadRequest, "No report file uploaded")
	}

	var roles []string
	if form, err := c.MultipartForm(); err == nil {
		roles = form.Value["executives"]
	}

	now := s.now()
	sess := &panelSession{
		ID:             uuid.New().String(),
		Company:        strings.TrimSpace(c.FormValue("company_name")),
		Industry:       strings.TrimSpace(c.FormValue("industry")),
		ReportType:     strings.TrimSpace(c.FormValue("report_type")),
		ReportBytes:    int(fh.Size),
		Budget:         budget,
		Executives:     s.bank.Roles(roles),
		AllowFollowUps: formBool(c.FormValue("allow_followups")),
		WebResearch:    formBool(c.FormValue("enable_web_research")),
		PerRole:        make(map[string]int),
		StartedAt:      now,
		LastSeen:       now,
	}
	if sess.ReportType == "" {
		sess.ReportType = "Business Report"
	}

	s.state.mu.Lock()
	s.state.Sessions[sess.ID] = sess
	first := s.nextQuestion(sess)
	s.state.mu.Unlock()

	c.SetCookie(&http.Cookie{Name: CookieName, Value: sess.ID, Path: "/", HttpOnly: true})
	return c.JSON(http.StatusOK, setupResponse{Status: "success", FirstQuestion: first})
}

func (s *Server) handleText(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	text := strings.TrimSpace(req.Response)
	if text == "" {
		return fail(c, http.StatusBadRequest, "No response provided")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	sess, err := s.lookup(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, msgNoSession)
	}
	if sess.closed() {
		return fail(c, http.StatusConflict, "The session has already ended")
	}
	return c.JSON(http.StatusOK, s.respond(sess, req.ExecutiveRole, text, session.ModalityText, len(text)))
}

func (s *Server) handleAudio(c echo.Context) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return fail(c, http.StatusBadRequest, "No audio file provided")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "Could not read audio")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Could not read audio")
	}
	if len(data) == 0 {
		return fail(c, http.StatusBadRequest, "Empty audio file")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	sess, err := s.lookup(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, msgNoSession)
	}
	if sess.closed() {
		return fail(c, http.StatusConflict, "The session has already ended")
	}

	transcription := transcribe(data)
	reply := s.respond(sess, c.FormValue("executive_role"), transcription, session.ModalityAudio, len(data))
	reply.Transcription = transcription
	return c.JSON(http.StatusOK, reply)
}

func (s *Server) handleEndSession(c echo.Context) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	sess, err := s.lookup(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, msgNoSession)
	}
	sess.Ended = true
	sess.LastSeen = s.now()

	audio, text := sess.counts()
	asked := 0
	var roles []string
	seen := make(map[string]bool)
	for _, q := range sess.Questions {
		if q.Closing {
			continue
		}
		asked++
		if !seen[q.Executive] {
			seen[q.Executive] = true
			roles = append(roles, q.Executive)
		}
	}

	return c.JSON(http.StatusOK, endResponse{
		Status: "success",
		Summary: &summaryJSON{
			CompanyName:        sess.Company,
			PresentationTopic:  sess.ReportType,
			SessionType:        string(sess.Budget.Kind),
			SessionLimit:       sess.Budget.Limit(),
			TotalQuestions:     asked,
			TotalResponses:     len(sess.Answers),
			AudioResponses:     audio,
			TextResponses:      text,
			ExecutivesInvolved: roles,
			SessionDuration:    formatDuration(s.now().Sub(sess.StartedAt)),
		},
	})
}

func (s *Server) handleTranscript(c echo.Context) error {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	sess, err := s.lookup(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, msgNoSession)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="transcript.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", transcriptPDF(sess))
}

// --- Helpers ---

// lookup returns the session named by the request cookie. The caller holds
// the state lock.
func (s *Server) lookup(c echo.Context) (*panelSession, error) {
	ck, err := c.Cookie(CookieName)
	if err != nil {
		return nil, errNoSession
	}
	sess, ok := s.state.Sessions[ck.Value]
	if !ok {
		return nil, errNoSession
	}
	return sess, nil
}

func parseBudget(c echo.Context) (session.Budget, error) {
	kind := session.BudgetKind(strings.TrimSpace(c.FormValue("session_type")))
	var b session.Budget
	switch kind {
	case session.BudgetDuration:
		n, err := strconv.Atoi(c.FormValue("time_limit"))
		if err != nil {
			return b, fmt.Errorf("time_limit must be a number")
		}
		b = session.DurationBudget(n)
	case session.BudgetQuestions, "":
		raw := c.FormValue("question_limit")
		if raw == "" {
			raw = "10"
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return b, fmt.Errorf("question_limit must be a number")
		}
		b = session.QuestionBudget(n)
	default:
		return b, fmt.Errorf("unknown session_type %q", kind)
	}
	return b, b.Validate()
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Status: "error", Error: msg})
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	sec := int((d % time.Minute) / time.Second)
	if m == 0 {
		return fmt.Sprintf("%ds", sec)
	}
	return fmt.Sprintf("%dm %ds", m, sec)
}
