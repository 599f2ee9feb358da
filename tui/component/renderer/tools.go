package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
)

const resultPreviewLen = 160

// renderToolCall draws one call with its arguments and, once it arrived,
// a one-line preview of the result.
func (r *MessageRenderer) renderToolCall(tc schema.ToolCall, index int) string {
	s := r.styles
	lines := []string{
		s.ToolBorder.Render("┌─ ") + s.ToolName.Render(fmt.Sprintf("%s #%d: %s", toolIcon(tc.Function.Name), index, tc.Function.Name)),
	}
	if args := formatArguments(tc.Function.Arguments); args != "" {
		lines = append(lines, s.ToolBorder.Render("│ ")+s.Arguments.Render(args))
	}

	result, ok := r.toolResults[tc.ID]
	switch {
	case !ok:
		lines = append(lines, s.ToolBorder.Render("└─ ")+s.System.Render("running…"))
	case isErrorResult(result):
		lines = append(lines, s.ToolBorder.Render("└─ ")+s.Error.Render("❌ "+Truncate(oneLine(result), resultPreviewLen)))
	default:
		lines = append(lines, s.ToolBorder.Render("└─ ")+s.Result.Render(Truncate(oneLine(result), resultPreviewLen)))
	}
	return s.Indent.Render(strings.Join(lines, "\n"))
}

// formatArguments renders a JSON object as "key=value" pairs in key order.
func formatArguments(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	var args map[string]any
	if err := sonic.UnmarshalString(raw, &args); err != nil {
		return Truncate(oneLine(raw), 80)
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(args[k])
		if str, ok := args[k].(string); ok && strings.HasPrefix(str, "http") {
			v = ShortenURL(str)
		}
		parts = append(parts, k+"="+Truncate(oneLine(v), 40))
	}
	return strings.Join(parts, " ")
}

func isErrorResult(s string) bool {
	return strings.HasPrefix(s, "Error:") || strings.HasPrefix(s, "[ERROR]")
}
