package component

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"

	"revise/pubsub"
)

// StatusModel is a spinner plus a status line.
type StatusModel struct {
	spinner spinner.Model
	running bool
	text    string
	width   int
}

func NewStatusModel() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return StatusModel{spinner: s, text: "Ready"}
}

func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update starts the spinner on the first message of a chat turn and stops
// it when the turn finishes or fails.
func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	if ev, ok := msg.(pubsub.Event[*schema.Message]); ok {
		switch ev.Type {
		case pubsub.CreatedEvent:
			if !m.running {
				return m.Start("Thinking...")
			}
		case pubsub.UpdatedEvent:
			if ev.Payload != nil {
				m.text = ev.Payload.Content
			}
		case pubsub.FinishedEvent:
			return m.Stop("Ready"), nil
		case pubsub.FailedEvent:
			return m.Stop("Failed"), nil
		}
	}
	if m.running {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m StatusModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 0)
	if m.running {
		return style.Render(fmt.Sprintf("%s %s", m.spinner.View(), m.text))
	}
	return style.Render(m.text)
}

func (m StatusModel) Start(text string) (StatusModel, tea.Cmd) {
	wasRunning := m.running
	m.running = true
	m.text = text
	if wasRunning {
		return m, nil
	}
	return m, m.spinner.Tick
}

func (m StatusModel) Stop(text string) StatusModel {
	m.running = false
	m.text = text
	return m
}

func (m *StatusModel) SetWidth(width int) {
	m.width = width
}

func (m StatusModel) IsRunning() bool {
	return m.running
}
