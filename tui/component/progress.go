package component

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"revise/llm/pipeline"
	"revise/pubsub"
)

// ProgressModel shows pipeline step reports as a bar and a label.
type ProgressModel struct {
	bar   progress.Model
	last  pipeline.Progress
	width int
}

func NewProgressModel() ProgressModel {
	return ProgressModel{bar: progress.New(progress.WithDefaultGradient())}
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pubsub.Event[pipeline.Progress]:
		m.last = msg.Payload
		return m, m.bar.SetPercent(msg.Payload.Fraction())
	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	label := "waiting"
	if m.last.Total > 0 {
		label = fmt.Sprintf("step %d/%d: %s", m.last.Step, m.last.Total, m.last.Label)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.bar.View(), lipgloss.NewStyle().Faint(true).Render(label))
}

func (m *ProgressModel) SetWidth(width int) {
	m.width = width
	m.bar.Width = max(10, width-4)
}

// Current is the last report received.
func (m ProgressModel) Current() pipeline.Progress {
	return m.last
}
