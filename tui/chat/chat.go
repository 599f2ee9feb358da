// Package chat is the free-form chat screen over the agent runtime.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"

	"revise/llm/agent"
	"revise/pubsub"
	"revise/tui/component"
)

type Model struct {
	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel

	runtime *agent.Runtime
	sub     <-chan pubsub.Event[*schema.Message]
	cancel  context.CancelFunc

	width  int
	height int
}

// New subscribes to the runtime and replays history, if any.
func New(ctx context.Context, runtime *agent.Runtime) Model {
	ctx, cancel := context.WithCancel(ctx)
	m := Model{
		list:    component.NewListModel(),
		edit:    component.NewEditModel("Ask about your notes..."),
		status:  component.NewStatusModel(),
		runtime: runtime,
		sub:     runtime.Broker().Subscribe(ctx),
		cancel:  cancel,
	}
	if history, err := runtime.Store().List(ctx); err == nil {
		for _, msg := range history {
			m.list.Append(msg)
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.edit.Init(), m.waitForAgentMessage())
}

func (m Model) waitForAgentMessage() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sub
		if !ok {
			return nil
		}
		return event
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - lipgloss.Height(m.status.View()) - m.edit.Height()
		m.list.SetSize(m.width, listHeight)
		m.edit.SetWidth(m.width)
		m.status.SetWidth(m.width)

	case component.EditorSubmitMsg:
		if m.status.IsRunning() {
			return m, nil
		}
		if msg.Value == "/reset" {
			_ = m.runtime.Reset()
			m.list.Reset()
			return m, nil
		}
		go func() {
			_ = m.runtime.Run(msg.Value)
		}()

	case pubsub.Event[*schema.Message]:
		cmds = append(cmds, m.waitForAgentMessage())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancel()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	m.edit, cmd = m.edit.Update(msg)
	cmds = append(cmds, cmd)
	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), m.status.View(), m.edit.View())
}
