// Package renderer draws chat messages for the terminal.
package renderer

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"
)

// MessageRenderer renders messages with markdown and inline tool calls.
// Finished messages are cached; only the last one is re-rendered.
type MessageRenderer struct {
	markdownRenderer *glamour.TermRenderer
	styles           *MessageStyles
	toolResults      map[string]string
	renderedCache    []string
	viewportWidth    int
	placeholder      string
}

func NewMessageRenderer(styles *MessageStyles) *MessageRenderer {
	if styles == nil {
		styles = DefaultMessageStyles()
	}
	markdownRenderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(0),
	)
	return &MessageRenderer{
		markdownRenderer: markdownRenderer,
		styles:           styles,
		toolResults:      make(map[string]string),
		renderedCache:    make([]string, 0),
		placeholder:      "Ask about your notes, e.g. \"what is due today?\"",
	}
}

// SetPlaceholder sets the text shown before the first message.
func (r *MessageRenderer) SetPlaceholder(s string) {
	r.placeholder = s
}

// IndexMessage remembers tool results so calls can show them.
func (r *MessageRenderer) IndexMessage(msg *schema.Message) {
	if msg.Role == schema.Tool && msg.ToolCallID != "" {
		r.toolResults[msg.ToolCallID] = msg.Content
		// a result changes how its call renders
		r.renderedCache = r.renderedCache[:0]
	}
}

func (r *MessageRenderer) Reset() {
	r.toolResults = make(map[string]string)
	r.renderedCache = r.renderedCache[:0]
}

func (r *MessageRenderer) SetViewportWidth(width int) {
	if width != r.viewportWidth {
		r.renderedCache = r.renderedCache[:0]
	}
	r.viewportWidth = width
}

func (r *MessageRenderer) RenderMessages(messages []*schema.Message) string {
	if len(messages) == 0 {
		return r.styles.System.Render(r.placeholder)
	}
	if len(messages) < len(r.renderedCache) {
		r.renderedCache = r.renderedCache[:0]
	}
	for i := len(r.renderedCache); i < len(messages)-1; i++ {
		r.renderedCache = append(r.renderedCache, r.RenderMessage(messages[i]))
	}

	var sb strings.Builder
	for _, cached := range r.renderedCache {
		if cached != "" {
			sb.WriteString(cached)
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(r.RenderMessage(messages[len(messages)-1]))

	content := sb.String()
	if r.viewportWidth > 0 {
		return lipgloss.NewStyle().Width(r.viewportWidth).Render(content)
	}
	return content
}

// RenderMessage renders one message. Tool messages render through their
// call and return "".
func (r *MessageRenderer) RenderMessage(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	switch msg.Role {
	case schema.User:
		if msg.Content == "" {
			return ""
		}
		return r.styles.User.Render("You:") + " " + msg.Content
	case schema.Assistant:
		return r.renderAssistantMessage(msg)
	case schema.System:
		if msg.Content == "" {
			return ""
		}
		if isErrorResult(msg.Content) {
			return r.styles.Error.Render(msg.Content)
		}
		return r.styles.System.Render(msg.Content)
	}
	return ""
}

// RenderMarkdown renders content with glamour, falling back to plain text.
func (r *MessageRenderer) RenderMarkdown(content string) string {
	if r.markdownRenderer == nil {
		return content
	}
	rendered, err := r.markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

func (r *MessageRenderer) renderAssistantMessage(msg *schema.Message) string {
	var parts []string
	if msg.ReasoningContent != "" {
		parts = append(parts, r.styles.Thinking.Render("Thinking:")+"\n"+r.styles.Thinking.Render(msg.ReasoningContent))
	}
	header := r.styles.Assistant.Render("Assistant:")
	if msg.Content != "" {
		parts = append(parts, header+"\n"+r.RenderMarkdown(msg.Content))
	}
	if len(msg.ToolCalls) > 0 {
		if msg.Content == "" {
			parts = append(parts, header)
		}
		calls := make([]string, 0, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			calls = append(calls, r.renderToolCall(tc, i+1))
		}
		parts = append(parts, strings.Join(calls, "\n"))
	}
	return strings.Join(parts, "\n")
}
