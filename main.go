package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"

	"revise/app"
	"revise/config"
	"revise/llm"
	"revise/logger"
	"revise/notion"
	"revise/session"
	"revise/storage"
	"revise/tui/chat"
	"revise/tui/ingest"
	"revise/tui/revise"
)

const usage = `Usage: revise <command> [flags]

Commands:
  chat     talk to the revision assistant (default)
  revise   take a quiz on a due note and log the revision
  ingest   turn photographed notes into a published page
  due      list notes and problems due for revision
`

func main() {
	cmd := "chat"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	if cmd == "help" || cmd == "-h" {
		fmt.Print(usage)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	s, err := config.Load()
	if err != nil {
		return err
	}

	// full-screen commands keep stdout for the TUI
	var log *logger.Logger
	if cmd == "due" {
		log, err = logger.New(s.LogMode)
	} else {
		log, err = logger.NewToFile(s.LogMode, s.LogFile)
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	closeTracing, err := app.SetupTracing(ctx, s)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
		closeTracing = func() {}
	}
	defer closeTracing()

	a, err := app.New(ctx, s, log)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "chat":
		return runChat(ctx, a, args)
	case "revise":
		return runRevise(ctx, a, args)
	case "ingest":
		return runIngest(ctx, a, args)
	case "due":
		return runDue(ctx, a, args)
	}
	fmt.Print(usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func sessionFlag(fs *flag.FlagSet) *string {
	def := os.Getenv("USER")
	if def == "" {
		def = "default"
	}
	return fs.String("session", def, "session id used to resume cached state")
}

func runChat(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	sessionID := sessionFlag(fs)
	_ = fs.Parse(args)

	tracker, err := session.Resume(ctx, a.Sessions, *sessionID, a.Log)
	if err != nil {
		return err
	}
	tracker.View(func(s *session.Session) {
		for _, m := range s.Chat {
			_ = a.Runtime.Store().Add(ctx, m)
		}
	})
	a.Runtime.Persist = func(ctx context.Context, transcript []*schema.Message) error {
		return tracker.Update(ctx, func(s *session.Session) error {
			s.Chat = transcript
			return nil
		})
	}

	_, err = tea.NewProgram(chat.New(ctx, a.Runtime), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx)).Run()
	return ignoreKilled(err)
}

func runRevise(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("revise", flag.ExitOnError)
	sessionID := sessionFlag(fs)
	n := fs.Int("n", llm.DefaultQuestionCount, "questions per quiz")
	_ = fs.Parse(args)

	tracker, err := session.Resume(ctx, a.Sessions, *sessionID, a.Log)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(revise.New(ctx, a.Revision, tracker, *n), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return ignoreKilled(err)
}

func runIngest(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	chapter := fs.String("chapter", "", "chapter name, e.g. \"Chapter 2: Paging\"")
	tag := fs.String("tag", "", "resource tag, e.g. the course or book")
	extra := fs.String("context", "", "additional instructions for the markdown model")
	_ = fs.Parse(args)

	files := make([]llm.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		files = append(files, fileFromPath(path))
	}
	in := llm.IngestionInput{ChapterName: *chapter, ResourceTag: *tag, Files: files, AdditionalContext: *extra}

	final, err := tea.NewProgram(ingest.New(ctx, a.Ingestion, a.Progress, in), tea.WithContext(ctx)).Run()
	if err != nil {
		return ignoreKilled(err)
	}
	if m, ok := final.(ingest.Model); ok {
		return m.Err()
	}
	return nil
}

func fileFromPath(path string) llm.File {
	return llm.File{
		Name:     filepath.Base(path),
		MIMEType: storage.DetectContentType(path, "image/jpeg"),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

var (
	headStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bb9af7"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func runDue(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("due", flag.ExitOnError)
	dsa := fs.Bool("dsa", false, "list due problems from the DSA database instead of notes")
	_ = fs.Parse(args)

	db, titleProp, heading := a.Settings.NotionKnowledgeDatabaseID, notion.PropName, "Notes due for revision"
	if *dsa {
		db, titleProp, heading = a.Settings.NotionDSADatabaseID, notion.PropProblem, "Problems due for revision"
	}
	pages, err := a.Notion.FetchDue(ctx, db)
	if err != nil {
		return err
	}
	fmt.Println(headStyle.Render(fmt.Sprintf("%s (%d)", heading, len(pages))))
	for _, p := range pages {
		line := "  " + notion.Title(p.Properties, titleProp)
		if effort := notion.SelectName(p.Properties, notion.PropEffort); effort != "" {
			line += dimStyle.Render(" [" + effort + "]")
		}
		fmt.Println(line + dimStyle.Render("  "+p.URL))
	}
	return nil
}

func ignoreKilled(err error) error {
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
