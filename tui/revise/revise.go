// Package revise is the quiz screen: pick a due note, answer the questions,
// read the evaluation and log the revision.
package revise

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"

	"revise/app"
	"revise/llm"
	"revise/notion"
	"revise/session"
	"revise/tui/component"
)

type screen int

const (
	screenLoading screen = iota
	screenPick
	screenQuiz
	screenReport
	screenLogged
)

type (
	dueLoadedMsg struct {
		notes []session.Note
		err   error
	}
	quizStartedMsg struct{ err error }
	answeredMsg    struct {
		next llm.Question
		ok   bool
		err  error
	}
	evaluatedMsg struct {
		report string
		err    error
	}
	loggedMsg struct{ err error }
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bb9af7"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
)

type Model struct {
	ctx      context.Context
	revision *app.Revision
	tracker  *session.Tracker
	// questions per quiz; 0 uses the default
	questions int

	screen screen
	notes  []session.Note
	cursor int

	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel
	err    error

	width  int
	height int
}

// New resumes the tracked session: an unfinished quiz continues where it
// stopped, otherwise the due list is loaded.
func New(ctx context.Context, revision *app.Revision, tracker *session.Tracker, questions int) Model {
	m := Model{
		ctx:       ctx,
		revision:  revision,
		tracker:   tracker,
		questions: questions,
		list:      component.NewListModel(),
		edit:      component.NewEditModel("Your answer..."),
		status:    component.NewStatusModel(),
	}
	m.list.SetPlaceholder("Generating your quiz...")

	tracker.View(func(s *session.Session) {
		switch {
		case s.QuizEvaluated:
			m.screen = screenReport
			m.replay(s)
			m.list.Append(schema.AssistantMessage(s.EvaluationOutput, nil))
		case s.QuizGenerated:
			m.screen = screenQuiz
			m.replay(s)
		default:
			m.screen = screenLoading
		}
	})
	return m
}

// replay rebuilds the transcript of answered questions.
func (m *Model) replay(s *session.Session) {
	for i, qa := range s.QnA {
		m.list.Append(schema.AssistantMessage(fmt.Sprintf("**Q%d.** %s", i+1, qa.Question), nil))
		m.list.Append(schema.UserMessage(qa.Answer))
	}
	if q, ok := s.CurrentQuestion(); ok {
		m.list.Append(schema.AssistantMessage(fmt.Sprintf("**Q%d.** %s", s.CurrentIdx+1, q.Text), nil))
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.edit.Init()}
	switch m.screen {
	case screenLoading:
		cmds = append(cmds, m.loadDue(false))
	case screenQuiz:
		var done bool
		m.tracker.View(func(s *session.Session) { done = s.Done() })
		if done {
			cmds = append(cmds, m.evaluate())
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) loadDue(refresh bool) tea.Cmd {
	return func() tea.Msg {
		notes, err := m.revision.DueNotes(m.ctx, m.tracker, refresh)
		return dueLoadedMsg{notes: notes, err: err}
	}
}

func (m Model) startQuiz(note session.Note) tea.Cmd {
	return func() tea.Msg {
		return quizStartedMsg{err: m.revision.Start(m.ctx, m.tracker, note, m.questions)}
	}
}

func (m Model) answer(text string) tea.Cmd {
	return func() tea.Msg {
		next, ok, err := m.revision.Answer(m.ctx, m.tracker, text)
		return answeredMsg{next: next, ok: ok, err: err}
	}
}

func (m Model) evaluate() tea.Cmd {
	return func() tea.Msg {
		report, err := m.revision.Evaluate(m.ctx, m.tracker)
		return evaluatedMsg{report: report, err: err}
	}
}

func (m Model) logRevision(effort string) tea.Cmd {
	return func() tea.Msg {
		return loggedMsg{err: m.revision.Log(m.ctx, m.tracker, effort)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width, m.height-m.edit.Height()-lipgloss.Height(m.status.View())-2)
		m.edit.SetWidth(m.width)
		m.status.SetWidth(m.width)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case dueLoadedMsg:
		m.status = m.status.Stop("Ready")
		m.err = msg.err
		m.notes = msg.notes
		m.cursor = 0
		m.screen = screenPick
		return m, nil

	case quizStartedMsg:
		if msg.err != nil {
			m.status = m.status.Stop("Ready")
			m.err = msg.err
			m.screen = screenPick
			return m, nil
		}
		m.status = m.status.Stop("Answer each question, then press Enter")
		m.list.Reset()
		m.tracker.View(func(s *session.Session) { m.replay(s) })
		m.screen = screenQuiz
		return m, m.edit.Focus()

	case component.EditorSubmitMsg:
		if m.screen != screenQuiz || m.status.IsRunning() {
			return m, nil
		}
		m.list.Append(schema.UserMessage(msg.Value))
		return m, m.answer(msg.Value)

	case answeredMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.ok {
			answered, _ := m.progress()
			m.list.Append(schema.AssistantMessage(fmt.Sprintf("**Q%d.** %s", answered+1, msg.next.Text), nil))
			return m, nil
		}
		var cmd tea.Cmd
		m.status, cmd = m.status.Start("Evaluating your answers...")
		return m, tea.Batch(cmd, m.evaluate())

	case evaluatedMsg:
		m.status = m.status.Stop("Log the revision: 1 Low · 2 Medium · 3 High · Enter without effort")
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.list.Append(schema.AssistantMessage(msg.report, nil))
		m.screen = screenReport
		m.edit.Blur()
		return m, nil

	case loggedMsg:
		if msg.err != nil {
			m.status = m.status.Stop("Log failed")
			m.err = msg.err
			return m, nil
		}
		m.status = m.status.Stop("Revision logged. Press r for the due list, Esc to quit")
		m.screen = screenLogged
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	if m.screen == screenQuiz {
		m.edit, cmd = m.edit.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch m.screen {
	case screenPick:
		switch msg.String() {
		case "up", "k":
			m.cursor = max(0, m.cursor-1)
		case "down", "j":
			m.cursor = min(len(m.notes)-1, m.cursor+1)
		case "r":
			m.err = nil
			var cmd tea.Cmd
			m.status, cmd = m.status.Start("Fetching due notes...")
			return tea.Batch(cmd, m.loadDue(true)), true
		case "enter":
			if len(m.notes) == 0 {
				return nil, true
			}
			m.err = nil
			var cmd tea.Cmd
			m.status, cmd = m.status.Start("Generating quiz...")
			return tea.Batch(cmd, m.startQuiz(m.notes[m.cursor])), true
		}
		return nil, true

	case screenReport:
		effort := map[string]string{"1": notion.EffortLow, "2": notion.EffortMedium, "3": notion.EffortHigh, "enter": ""}
		if e, ok := effort[msg.String()]; ok && !m.status.IsRunning() {
			var cmd tea.Cmd
			m.status, cmd = m.status.Start("Logging revision...")
			return tea.Batch(cmd, m.logRevision(e)), true
		}

	case screenLogged:
		if msg.String() == "r" {
			m.list.Reset()
			var cmd tea.Cmd
			m.status, cmd = m.status.Start("Fetching due notes...")
			m.screen = screenLoading
			return tea.Batch(cmd, m.loadDue(true)), true
		}
	}
	return nil, false
}

func (m Model) progress() (answered, total int) {
	m.tracker.View(func(s *session.Session) { answered, total = s.Progress() })
	return answered, total
}

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenLoading:
		body = "Fetching due notes..."
	case screenPick:
		body = m.pickView()
	default:
		answered, total := m.progress()
		header := titleStyle.Render(fmt.Sprintf("Quiz %d/%d", answered, total))
		parts := []string{header, m.list.View(), m.status.View()}
		if m.screen == screenQuiz {
			parts = append(parts, m.edit.View())
		}
		body = lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	if m.err != nil {
		body += "\n" + errorStyle.Render("Error: "+m.err.Error())
	}
	return body
}

func (m Model) pickView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Which notes would you like to revise?") + "\n\n")
	if len(m.notes) == 0 {
		sb.WriteString("Nothing is due today.\n")
	}
	for i, n := range m.notes {
		prefix := "  "
		line := n.Title
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
			line = cursorStyle.Render(line)
		}
		sb.WriteString(prefix + line + "\n")
	}
	sb.WriteString("\n" + m.status.View() + "\n")
	sb.WriteString(helpStyle.Render("↑/↓ select · Enter start quiz · r refresh · Esc quit"))
	return sb.String()
}
