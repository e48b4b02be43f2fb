// run.go implements the "panelsim run" command which sets up a session on
// the backend, drives it to the summary and saves the report.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/panelsim/panelsim/internal/capture"
	"github.com/panelsim/panelsim/internal/cleanup"
	"github.com/panelsim/panelsim/internal/clock"
	"github.com/panelsim/panelsim/internal/config"
	"github.com/panelsim/panelsim/internal/countdown"
	"github.com/panelsim/panelsim/internal/gateway"
	"github.com/panelsim/panelsim/internal/log"
	"github.com/panelsim/panelsim/internal/playback"
	"github.com/panelsim/panelsim/internal/report"
	"github.com/panelsim/panelsim/internal/sequencer"
	"github.com/panelsim/panelsim/internal/session"
	"github.com/panelsim/panelsim/internal/tui"
	"github.com/panelsim/panelsim/internal/tui/views"
	"github.com/panelsim/panelsim/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one panel session",
	Long: `Upload a report to the panel backend, answer the panel's questions by
typing or by voice, and save the session report under .panelsim/runs/.

The session ends when the question or time budget is used up, when the
panel closes it, or when you quit.`,
	Args: cobra.NoArgs,
}

var (
	reportFlag      string
	companyFlag     string
	industryFlag    string
	reportTypeFlag  string
	executivesFlag  []string
	questionsFlag   int
	minutesFlag     int
	followUpsFlag   bool
	researchFlag    bool
	backendFlag     string
	transcriptFlag  bool
	plainFlag       bool
	noAudioFlag     bool
	noPlaybackFlag  bool
	postTimeoutFlag time.Duration
)

func init() {
	// Assigned here rather than in the literal: runRun reads runCmd's flags,
	// which would otherwise form an initialization cycle.
	runCmd.RunE = runRun
	runCmd.Flags().StringVar(&reportFlag, "report", "", "Path to the report to present (PDF, DOCX or text)")
	runCmd.Flags().StringVar(&companyFlag, "company", "", "Company name")
	runCmd.Flags().StringVar(&industryFlag, "industry", "", "Industry (default from config)")
	runCmd.Flags().StringVar(&reportTypeFlag, "report-type", "", "Report type (default from config)")
	runCmd.Flags().StringSliceVar(&executivesFlag, "executives", nil, "Panel roles, e.g. CEO,CFO,CTO (default from config)")
	runCmd.Flags().IntVar(&questionsFlag, "questions", 5, "Number of questions in the session")
	runCmd.Flags().IntVar(&minutesFlag, "minutes", 0, "Session length in minutes (overrides --questions)")
	runCmd.Flags().BoolVar(&followUpsFlag, "followups", true, "Allow follow-up questions")
	runCmd.Flags().BoolVar(&researchFlag, "research", false, "Let the panel research the company on the web")
	runCmd.Flags().StringVar(&backendFlag, "backend", "", "Backend URL (overrides config and environment)")
	runCmd.Flags().BoolVar(&transcriptFlag, "transcript", true, "Download the transcript after the session")
	runCmd.Flags().BoolVar(&plainFlag, "plain", false, "Use the line-oriented display even on a terminal")
	runCmd.Flags().BoolVar(&noAudioFlag, "no-audio", false, "Disable the microphone; answers are typed only")
	runCmd.Flags().BoolVar(&noPlaybackFlag, "no-playback", false, "Do not play the closing message aloud")
	runCmd.Flags().DurationVar(&postTimeoutFlag, "post-timeout", 30*time.Second, "Time allowed for the summary and transcript downloads")
}

// budgetFromFlags picks the session budget. A minute count wins over a
// question count.
func budgetFromFlags(questions, minutes int) (session.Budget, error) {
	b := session.QuestionBudget(questions)
	if minutes > 0 {
		b = session.DurationBudget(minutes)
	}
	if err := b.Validate(); err != nil {
		return session.Budget{}, err
	}
	return b, nil
}

// setupRequest merges flags over the config's setup defaults.
func setupRequest(cfg *config.Config, budget session.Budget) (gateway.SetupRequest, error) {
	sr := gateway.SetupRequest{
		Budget:            budget,
		CompanyName:       companyFlag,
		Industry:          cfg.Setup.Industry,
		ReportType:        cfg.Setup.ReportType,
		Executives:        cfg.Setup.Executives,
		AllowFollowUps:    cfg.Setup.AllowFollowUps,
		EnableWebResearch: cfg.Setup.EnableWebResearch,
	}
	if industryFlag != "" {
		sr.Industry = industryFlag
	}
	if reportTypeFlag != "" {
		sr.ReportType = reportTypeFlag
	}
	if len(executivesFlag) > 0 {
		sr.Executives = normalizeRoles(executivesFlag)
	}
	if runCmd.Flags().Changed("followups") {
		sr.AllowFollowUps = followUpsFlag
	}
	if runCmd.Flags().Changed("research") {
		sr.EnableWebResearch = researchFlag
	}

	if reportFlag != "" {
		data, err := os.ReadFile(reportFlag)
		if err != nil {
			return sr, fmt.Errorf("reading report: %w", err)
		}
		sr.Report = data
		sr.ReportName = filepath.Base(reportFlag)
	}
	return sr, nil
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func runRun(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if backendFlag != "" {
		cfg.Backend.URL = backendFlag
	}
	if noPlaybackFlag {
		cfg.Audio.Playback = false
	}
	if runCmd.Flags().Changed("transcript") {
		cfg.Session.SaveTranscript = transcriptFlag
	}

	budget, err := budgetFromFlags(questionsFlag, minutesFlag)
	if err != nil {
		return err
	}
	sr, err := setupRequest(cfg, budget)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := gateway.New(gateway.Config{
		BaseURL:      cfg.Backend.URL,
		TextEndpoint: cfg.Backend.TextEndpoint,
		Timeout:      cfg.Backend.TimeoutDuration(),
	})
	if err != nil {
		return err
	}

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("backend not reachable at %s: %w", cfg.Backend.URL, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Setting up a %s session with the panel...\n", budget)
	first, err := client.Setup(ctx, sr)
	if err != nil {
		return fmt.Errorf("session setup: %w", err)
	}

	logger, err := log.NewLogger(root)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	var journal sequencer.Journal
	store, err := session.NewStore(config.JournalPath(root))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: session history disabled: %v\n", err)
	} else {
		defer store.Close()
		journal = store
	}

	var recorder sequencer.Recorder
	if !noAudioFlag {
		recorder = capture.NewUnit(capture.NewMalgoDevice(cfg.Audio.SampleRate, cfg.Audio.Channels))
	}
	var player playback.Player = playback.Nop{}
	if cfg.Audio.Playback {
		player = playback.NewSpeaker(client)
	}

	clk := clock.Real()
	timer := countdown.New(clk, countdown.Thresholds{
		Warning: time.Duration(cfg.Session.WarningSeconds) * time.Second,
		Danger:  time.Duration(cfg.Session.DangerSeconds) * time.Second,
	})

	interactive := tui.IsTTY() && !plainFlag
	var renderer sequencer.Renderer
	var tuiRenderer *tui.Renderer
	if interactive {
		tuiRenderer = tui.NewRenderer()
		renderer = tuiRenderer
	} else {
		renderer = ui.NewConsole(cmd.OutOrStdout())
	}

	seq, err := sequencer.New(
		session.Session{Company: sr.CompanyName, Budget: budget},
		sequencer.Config{
			FollowUpDelay:     cfg.Session.FollowUpDelayDuration(),
			ClosingMaxWait:    cfg.Session.ClosingMaxWaitDuration(),
			EchoTranscription: cfg.Session.EchoTranscription,
			BreakerThreshold:  cfg.Session.BreakerThreshold,
		},
		sequencer.Deps{
			Gateway:  client,
			Recorder: recorder,
			Timer:    timer,
			Player:   player,
			Renderer: renderer,
			Journal:  journal,
			Log:      logger,
			Clock:    clk,
		},
	)
	if err != nil {
		return err
	}

	var final session.Session
	if interactive {
		final, err = runInteractive(ctx, seq, tuiRenderer, first, sessionTitle(sr.CompanyName), budget)
	} else {
		final, err = runPlain(ctx, seq, first, cmd.InOrStdin())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return finishRun(cmd.OutOrStdout(), root, cfg, client, logger, final)
}

func sessionTitle(company string) string {
	if company == "" {
		return "Panel session"
	}
	return "Panel session: " + company
}

// runInteractive runs the sequencer and the Bubble Tea program side by side.
// Leaving the program early ends the session.
func runInteractive(ctx context.Context, seq *sequencer.Sequencer, r *tui.Renderer, first session.Prompt, title string, budget session.Budget) (session.Session, error) {
	model := views.NewSessionModel(seq, title, budget, 80, 24)
	p := tui.NewProgram(ctx, model, true)

	var final session.Session
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		final, err = seq.Run(gctx, first)
		p.Send(tui.SessionEndedMsg{Session: final, Err: err})
		return err
	})

	g.Go(func() error {
		_, err := p.Run()
		seq.Quit()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		r.Attach(p)
		return nil
	})

	err := g.Wait()
	return final, err
}

// runPlain drives the session from line input.
func runPlain(ctx context.Context, seq *sequencer.Sequencer, first session.Prompt, in io.Reader) (session.Session, error) {
	var final session.Session
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		final, err = seq.Run(gctx, first)
		return err
	})
	g.Go(func() error {
		return ui.ReadCommands(gctx, in, seq, seq.Done())
	})

	err := g.Wait()
	return final, err
}

// finishRun fetches the backend summary and transcript, then writes the
// report into a new run directory. Failures here only produce warnings.
func finishRun(out io.Writer, root string, cfg *config.Config, client *gateway.Client, logger *log.Logger, final session.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), postTimeoutFlag)
	defer cancel()

	var summary *gateway.Summary
	if s, err := client.EndSession(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not fetch the session summary: %v\n", err)
	} else {
		summary = &s
	}

	runsDir := config.RunsDir(root)
	runDir, err := cleanup.NewRunDir(runsDir, time.Now())
	if err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	var transcript string
	if cfg.Session.SaveTranscript && final.State == session.Closed {
		path := filepath.Join(runDir, "transcript.pdf")
		if err := saveTranscript(ctx, client, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not download the transcript: %v\n", err)
		} else {
			transcript = path
		}
	}

	events, err := logger.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read the event log: %v\n", err)
	}
	r := report.GenerateReport(final, summary, events)
	r.Transcript = transcript
	if err := report.WriteReport(runDir, r); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, report.FormatReport(r))
	fmt.Fprintf(out, "Saved to %s\n", runDir)

	if cfg.Cleanup.MaxAgeDays > 0 {
		pruned, pruneErr := cleanup.PruneByAge(runsDir, cfg.Cleanup.MaxAgeDays, time.Now(), false)
		if pruneErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", pruneErr)
		} else if len(pruned) > 0 {
			fmt.Fprintf(os.Stderr, "Cleaned up %d old run(s)\n", len(pruned))
		}
	}
	return nil
}

func saveTranscript(ctx context.Context, client *gateway.Client, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := client.DownloadTranscript(ctx, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
