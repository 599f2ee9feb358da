// Package ingest shows the progress of one ingestion run.
package ingest

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"revise/llm"
	"revise/llm/pipeline"
	"revise/pubsub"
	"revise/tui/component"
)

// Runner is the ingestion entry point.
type Runner interface {
	Run(ctx context.Context, in llm.IngestionInput, reporter pipeline.ProgressReporter) (*llm.IngestionReport, error)
}

type finishedMsg struct {
	report *llm.IngestionReport
	err    error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bb9af7"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	faint      = lipgloss.NewStyle().Faint(true)
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	runner Runner
	broker *pubsub.Broker[pipeline.Progress]
	sub    <-chan pubsub.Event[pipeline.Progress]
	input  llm.IngestionInput

	progress component.ProgressModel
	report   *llm.IngestionReport
	err      error
	done     bool
}

func New(ctx context.Context, runner Runner, broker *pubsub.Broker[pipeline.Progress], in llm.IngestionInput) Model {
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		runner:   runner,
		broker:   broker,
		sub:      broker.Subscribe(ctx),
		input:    in,
		progress: component.NewProgressModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.run(), m.waitForProgress())
}

func (m Model) run() tea.Cmd {
	return func() tea.Msg {
		report, err := m.runner.Run(m.ctx, m.input, pipeline.BrokerReporter{Broker: m.broker})
		return finishedMsg{report: report, err: err}
	}
}

func (m Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.sub
		if !ok {
			return nil
		}
		return ev
	}
}

// Err is the run's failure, if any, once the program exits.
func (m Model) Err() error {
	return m.err
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancel()
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}
		return m, nil

	case pubsub.Event[pipeline.Progress]:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, tea.Batch(cmd, m.waitForProgress())

	case finishedMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.progress, cmd = m.progress.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Ingesting %s · %s (%d files)", m.input.ChapterName, m.input.ResourceTag, len(m.input.Files))))
	sb.WriteString("\n\n" + m.progress.View() + "\n\n")

	switch {
	case !m.done:
		sb.WriteString(faint.Render("Esc to cancel"))
	case m.err != nil:
		sb.WriteString(errStyle.Render("Failed: "+m.err.Error()) + "\n")
		sb.WriteString(faint.Render("Press any key to exit"))
	default:
		sb.WriteString(okStyle.Render("Published "+m.report.Page.URL) + "\n")
		if n := len(m.report.ArchivedKeys); n > 0 {
			sb.WriteString(fmt.Sprintf("Archived %d files under %s\n", n, archivePrefix(m.report.ArchivedKeys[0])))
		}
		if m.report.ChunkCount > 0 {
			sb.WriteString(fmt.Sprintf("Indexed %d chunks\n", m.report.ChunkCount))
		}
		sb.WriteString(faint.Render("Press any key to exit"))
	}
	return sb.String()
}

func archivePrefix(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i+1]
	}
	return key
}
