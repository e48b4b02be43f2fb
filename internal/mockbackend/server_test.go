package mockbackend

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelsim/panelsim/internal/capture"
	"github.com/panelsim/panelsim/internal/gateway"
	"github.com/panelsim/panelsim/internal/session"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func startServer(t *testing.T, now func() time.Time) *Server {
	t.Helper()
	srv, err := NewServer(Options{Now: now})
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func newClient(t *testing.T, srv *Server, textPath string) *gateway.Client {
	t.Helper()
	c, err := gateway.New(gateway.Config{BaseURL: srv.URL(), TextEndpoint: textPath, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func setup(t *testing.T, c *gateway.Client, budget session.Budget, followUps bool) session.Prompt {
	t.Helper()
	first, err := c.Setup(context.Background(), gateway.SetupRequest{
		Budget:         budget,
		ReportName:     "q3.pdf",
		Report:         []byte("%PDF-1.4 fake report"),
		CompanyName:    "Acme",
		ReportType:     "Quarterly Review",
		Executives:     []string{"CEO", "CFO"},
		AllowFollowUps: followUps,
	})
	require.NoError(t, err)
	return first
}

const longAnswer = "Revenue grew twenty percent on the back of two new enterprise contracts and lower churn in the mid market"

func TestMockBackend_QuestionBudgetFlow(t *testing.T) {
	srv := startServer(t, nil)
	c := newClient(t, srv, "")
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	first := setup(t, c, session.QuestionBudget(2), false)
	assert.Equal(t, "CEO", first.Executive)
	assert.Equal(t, "Sarah Chen", first.Name)
	assert.Contains(t, first.Question, "Acme")
	assert.False(t, first.IsClosing)

	res, err := c.Submit(ctx, first, gateway.Text("short"))
	require.NoError(t, err)
	require.NotNil(t, res.NextPrompt)
	assert.Equal(t, "CFO", res.NextPrompt.Executive)
	assert.False(t, res.Closing())

	res, err = c.Submit(ctx, *res.NextPrompt, gateway.Text(longAnswer))
	require.NoError(t, err)
	assert.True(t, res.SessionEnding)
	require.NotNil(t, res.NextPrompt)
	assert.True(t, res.NextPrompt.IsClosing)
	assert.Contains(t, res.NextPrompt.Question, "concludes our session")

	_, err = c.Submit(ctx, *res.NextPrompt, gateway.Text("one more thing"))
	assert.ErrorIs(t, err, gateway.ErrUploadFailed)

	sum, err := c.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", sum.CompanyName)
	assert.Equal(t, "Quarterly Review", sum.PresentationTopic)
	assert.Equal(t, "questions", sum.SessionType)
	assert.Equal(t, 2, sum.SessionLimit)
	assert.Equal(t, 2, sum.TotalQuestions)
	assert.Equal(t, 2, sum.TotalResponses)
	assert.Equal(t, 2, sum.TextResponses)
	assert.Equal(t, []string{"CEO", "CFO"}, sum.ExecutivesInvolved)

	var pdf bytes.Buffer
	n, err := c.DownloadTranscript(ctx, &pdf)
	require.NoError(t, err)
	assert.Equal(t, int64(pdf.Len()), n)
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF-1.4")))
	assert.Contains(t, pdf.String(), "Presenter: short")
	assert.True(t, bytes.HasSuffix(pdf.Bytes(), []byte("%%EOF\n")))
}

func TestMockBackend_FollowUps(t *testing.T) {
	srv := startServer(t, nil)
	c := newClient(t, srv, PathTextAlias)
	ctx := context.Background()

	first := setup(t, c, session.QuestionBudget(3), true)

	res, err := c.Submit(ctx, first, gateway.Text("It went well."))
	require.NoError(t, err)
	require.NotNil(t, res.NextPrompt)
	assert.True(t, res.NextPrompt.IsFollowUp)
	assert.Equal(t, "CEO", res.NextPrompt.Executive)

	// A short reply to a follow-up moves on rather than nesting.
	res, err = c.Submit(ctx, *res.NextPrompt, gateway.Text("Still well."))
	require.NoError(t, err)
	assert.False(t, res.NextPrompt.IsFollowUp)
	assert.Equal(t, "CFO", res.NextPrompt.Executive)

	res, err = c.Submit(ctx, *res.NextPrompt, gateway.Text(longAnswer))
	require.NoError(t, err)
	assert.False(t, res.NextPrompt.IsFollowUp)
	assert.Equal(t, "CEO", res.NextPrompt.Executive)
}

func TestMockBackend_TimeBudgetCloses(t *testing.T) {
	clock := &fakeNow{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	srv := startServer(t, clock.now)
	c := newClient(t, srv, "")
	ctx := context.Background()

	first := setup(t, c, session.DurationBudget(2), false)

	clock.advance(time.Minute)
	res, err := c.Submit(ctx, first, gateway.Text(longAnswer))
	require.NoError(t, err)
	assert.False(t, res.Closing())

	clock.advance(time.Minute)
	res, err = c.Submit(ctx, *res.NextPrompt, gateway.Text(longAnswer))
	require.NoError(t, err)
	assert.True(t, res.Closing())

	sum, err := c.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "time", sum.SessionType)
	assert.Equal(t, "2m 0s", sum.SessionDuration)
}

func TestMockBackend_AudioTranscription(t *testing.T) {
	srv := startServer(t, nil)
	c := newClient(t, srv, "")
	ctx := context.Background()

	first := setup(t, c, session.QuestionBudget(3), true)

	hdr := make([]byte, 44)
	copy(hdr[0:4], "RIFF")
	copy(hdr[8:12], "WAVE")
	binary.LittleEndian.PutUint32(hdr[28:32], 32000)
	data := append(hdr, make([]byte, 64000)...)

	res, err := c.Submit(ctx, first, gateway.Audio(capture.NewPayload(data, capture.WAVFormat)))
	require.NoError(t, err)
	assert.Equal(t, "(Recorded answer, 2.0 seconds of audio.)", res.Transcription)
	assert.False(t, res.NextPrompt.IsFollowUp, "audio answers are not pressed for detail")

	sum, err := c.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.AudioResponses)
}

func TestMockBackend_NoSessionCookie(t *testing.T) {
	srv := startServer(t, nil)
	c := newClient(t, srv, "")

	_, err := c.Submit(context.Background(), session.Prompt{Executive: "CEO", Question: "?"}, gateway.Text("hi"))

	var se *gateway.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.Status)
	assert.Equal(t, msgNoSession, se.Message)
}

func TestLookup_UnknownSession(t *testing.T) {
	srv := startServer(t, nil)
	e := echo.New()
	srv.state.mu.RLock()
	defer srv.state.mu.RUnlock()

	req := httptest.NewRequest(http.MethodPost, PathTextAlias, nil)
	_, err := srv.lookup(e.NewContext(req, httptest.NewRecorder()))
	assert.ErrorIs(t, err, errNoSession)

	req = httptest.NewRequest(http.MethodPost, PathTextAlias, nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "expired"})
	_, err = srv.lookup(e.NewContext(req, httptest.NewRecorder()))
	assert.ErrorIs(t, err, errNoSession)
	assert.Equal(t, "no session for request", err.Error())
}

func TestMockBackend_SetupAcceptsEmptyReport(t *testing.T) {
	srv := startServer(t, nil)
	c := newClient(t, srv, "")

	_, err := c.Setup(context.Background(), gateway.SetupRequest{Budget: session.QuestionBudget(3)})
	// An empty report part is still a file part, so setup succeeds.
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Sessions())
}

func TestReapIdle(t *testing.T) {
	clock := &fakeNow{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	srv := startServer(t, clock.now)
	setup(t, newClient(t, srv, ""), session.QuestionBudget(3), false)
	setup(t, newClient(t, srv, ""), session.QuestionBudget(3), false)

	assert.Equal(t, 0, srv.reapIdle(time.Hour))
	clock.advance(2 * time.Hour)
	assert.Equal(t, 2, srv.reapIdle(time.Hour))
	assert.Equal(t, 0, srv.Sessions())
}

func TestLoadBank_Errors(t *testing.T) {
	_, err := LoadBank([]byte("questions: {}"))
	assert.Error(t, err)

	_, err = LoadBank([]byte("executives: {}\nquestions:\n  CEO: [\"q\"]\n"))
	assert.Error(t, err)

	b, err := DefaultBank()
	require.NoError(t, err)
	assert.Equal(t, []string{"CFO", "CTO"}, b.Roles([]string{"cfo", "nobody", "CTO"}))
	assert.Len(t, b.Roles(nil), 5)
}

func TestTranscriptPDFEscapes(t *testing.T) {
	assert.Equal(t, `a\(b\)c\\d?`, pdfEscape("a(b)c\\dé"))
	assert.Equal(t, []string{"aaa bbb", "ccc"}, wrap("aaa bbb ccc", 7))
}
