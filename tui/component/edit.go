package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EditorSubmitMsg carries the text the user submitted with Enter.
type EditorSubmitMsg struct {
	Value string
}

// EditModel is a single-line input; Enter submits.
type EditModel struct {
	textarea textarea.Model
	width    int
}

func NewEditModel(placeholder string) EditModel {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.Focus()
	ta.Prompt = "> "
	ta.CharLimit = 4000
	ta.SetWidth(30)
	ta.SetHeight(1)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return EditModel{textarea: ta, width: 30}
}

func (m EditModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m EditModel) Update(msg tea.Msg) (EditModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		value := strings.TrimSpace(m.textarea.Value())
		if value == "" {
			return m, nil
		}
		m.textarea.Reset()
		return m, func() tea.Msg { return EditorSubmitMsg{Value: value} }
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *EditModel) View() string {
	return m.textarea.View()
}

func (m *EditModel) SetWidth(width int) {
	m.width = width
	m.textarea.SetWidth(width)
}

func (m *EditModel) SetPlaceholder(s string) {
	m.textarea.Placeholder = s
}

func (m *EditModel) Focus() tea.Cmd {
	return m.textarea.Focus()
}

func (m *EditModel) Blur() {
	m.textarea.Blur()
}

func (m *EditModel) Focused() bool {
	return m.textarea.Focused()
}

func (m *EditModel) Height() int {
	return m.textarea.Height()
}
