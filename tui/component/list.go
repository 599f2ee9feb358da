package component

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cloudwego/eino/schema"

	"revise/pubsub"
	"revise/tui/component/renderer"
)

// ListModel is the scrolling message list. Rendering is delegated to
// renderer.MessageRenderer.
type ListModel struct {
	viewport viewport.Model
	messages []*schema.Message
	width    int
	height   int

	renderer *renderer.MessageRenderer
}

func NewListModel() ListModel {
	vp := viewport.New(30, 5)
	r := renderer.NewMessageRenderer(nil)
	vp.SetContent(r.RenderMessages(nil))
	return ListModel{
		viewport: vp,
		messages: make([]*schema.Message, 0),
		renderer: r,
		width:    30,
		height:   5,
	}
}

func (m ListModel) Init() tea.Cmd {
	return nil
}

func (m ListModel) Update(msg tea.Msg) (ListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(3)
		}
	case pubsub.Event[*schema.Message]:
		switch msg.Type {
		case pubsub.CreatedEvent, pubsub.FailedEvent:
			m.Append(msg.Payload)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ListModel) View() string {
	return m.viewport.View()
}

// Append adds a message and scrolls to it.
func (m *ListModel) Append(msg *schema.Message) {
	if msg == nil {
		return
	}
	m.messages = append(m.messages, msg)
	m.renderer.IndexMessage(msg)
	m.refresh()
}

// Reset drops every message.
func (m *ListModel) Reset() {
	m.messages = m.messages[:0]
	m.renderer.Reset()
	m.refresh()
}

func (m *ListModel) SetPlaceholder(s string) {
	m.renderer.SetPlaceholder(s)
	m.refresh()
}

func (m *ListModel) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.renderer.SetViewportWidth(width)
	m.refresh()
}

func (m *ListModel) refresh() {
	m.viewport.SetContent(m.renderer.RenderMessages(m.messages))
	m.viewport.GotoBottom()
}
