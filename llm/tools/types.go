package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
)

// ResultStatus represents the status of a tool execution
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// Metadata is appended to text results as an attribute line.
type Metadata struct {
	PageID     string `json:"page_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Collection string `json:"collection,omitempty"`
	MatchCount int    `json:"match_count,omitempty"`
}

// ToolResult is a text tool response.
type ToolResult struct {
	Status   ResultStatus `json:"status"`
	Content  string       `json:"content"`
	Metadata *Metadata    `json:"metadata,omitempty"`
}

// String renders the result for the model.
func (r *ToolResult) String() string {
	var sb strings.Builder
	if r.Status == StatusError {
		sb.WriteString("[ERROR] ")
	}
	sb.WriteString(r.Content)

	if md := r.Metadata; md != nil {
		var attrs []string
		if md.PageID != "" {
			attrs = append(attrs, "page="+md.PageID)
		}
		if md.URL != "" {
			attrs = append(attrs, "url="+md.URL)
		}
		if md.Collection != "" {
			attrs = append(attrs, "collection="+md.Collection)
		}
		if md.MatchCount > 0 {
			attrs = append(attrs, fmt.Sprintf("matches=%d", md.MatchCount))
		}
		if len(attrs) > 0 {
			sb.WriteString(fmt.Sprintf("\n\n<metadata %s />", strings.Join(attrs, " ")))
		}
	}
	return sb.String()
}

func Success(content string, metadata *Metadata) (string, error) {
	return (&ToolResult{Status: StatusSuccess, Content: content, Metadata: metadata}).String(), nil
}

func Error(content string) (string, error) {
	return (&ToolResult{Status: StatusError, Content: content}).String(), nil
}

// ErrorHandler turns tool errors into "Error: ..." results so the model can
// react instead of the turn failing.
func ErrorHandler() compose.ToolMiddleware {
	return compose.ToolMiddleware{
		Invokable: func(next compose.InvokableToolEndpoint) compose.InvokableToolEndpoint {
			return func(ctx context.Context, in *compose.ToolInput) (*compose.ToolOutput, error) {
				output, err := next(ctx, in)
				if err == nil {
					return output, nil
				}
				errStr := err.Error()
				if strings.Contains(errStr, "interrupt signal") {
					return nil, err
				}
				// eino prefixes tool errors with call details; keep the cause
				if idx := strings.Index(errStr, "err="); idx != -1 {
					errStr = strings.TrimSpace(errStr[idx+4:])
				}
				return &compose.ToolOutput{Result: "Error: " + errStr}, nil
			}
		},
	}
}
