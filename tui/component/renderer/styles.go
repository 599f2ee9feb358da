package renderer

import (
	"github.com/charmbracelet/lipgloss"
)

// MessageStyles holds the lipgloss styles for each message part.
type MessageStyles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tool      lipgloss.Style
	Thinking  lipgloss.Style
	Error     lipgloss.Style

	ToolName   lipgloss.Style
	ToolBorder lipgloss.Style
	Arguments  lipgloss.Style
	Result     lipgloss.Style
	Indent     lipgloss.Style
}

func DefaultMessageStyles() *MessageStyles {
	return &MessageStyles{
		User:       lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true),
		Assistant:  lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7")).Bold(true),
		System:     lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Italic(true),
		Tool:       lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		Thinking:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4")).Italic(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")),
		ToolName:   lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")).Bold(true),
		ToolBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Faint(true),
		Arguments:  lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")),
		Result:     lipgloss.NewStyle().Foreground(lipgloss.Color("#c0caf5")),
		Indent:     lipgloss.NewStyle().PaddingLeft(2),
	}
}

// toolIcons maps tool names to the icon shown on their call line.
var toolIcons = map[string]string{
	"fetch_due_notes":          "📋",
	"fetch_dsa_problem":        "🧩",
	"fetch_page_content":       "📄",
	"log_revision":             "✅",
	"generate_quiz_from_notes": "❓",
	"evaluate_quiz":            "📝",
	"search_notes":             "🔍",
}

func toolIcon(name string) string {
	if icon, ok := toolIcons[name]; ok {
		return icon
	}
	return "🔧"
}
