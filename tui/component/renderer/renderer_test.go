package renderer

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestToolCallShowsResult(t *testing.T) {
	r := NewMessageRenderer(nil)
	call := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "c1",
		Function: schema.FunctionCall{Name: "fetch_page_content", Arguments: `{"page_id":"p1"}`},
	}})

	out := r.RenderMessages([]*schema.Message{call})
	if !strings.Contains(out, "fetch_page_content") || !strings.Contains(out, "page_id=p1") || !strings.Contains(out, "running") {
		t.Errorf("pending call not rendered:\n%s", out)
	}

	result := schema.ToolMessage("# Paging\nPages map to frames.", "c1")
	r.IndexMessage(result)
	out = r.RenderMessages([]*schema.Message{call, result})
	if !strings.Contains(out, "# Paging Pages map to frames.") {
		t.Errorf("result preview missing:\n%s", out)
	}
}

func TestToolErrorResult(t *testing.T) {
	r := NewMessageRenderer(nil)
	call := schema.AssistantMessage("", []schema.ToolCall{{ID: "c1", Function: schema.FunctionCall{Name: "log_revision"}}})
	r.IndexMessage(schema.ToolMessage("Error: page not found", "c1"))
	if out := r.RenderMessage(call); !strings.Contains(out, "❌") {
		t.Errorf("error result not flagged:\n%s", out)
	}
}

func TestFormatArguments(t *testing.T) {
	got := formatArguments(`{"page_id":"p1","n_questions":5,"notion_url":"https://www.notion.so/p1"}`)
	if got != "n_questions=5 notion_url=notion.so/p1 page_id=p1" {
		t.Errorf("formatArguments = %q", got)
	}
	if got := formatArguments("not json"); got != "not json" {
		t.Errorf("raw fallback = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héll…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}
