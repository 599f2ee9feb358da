package notion

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

type childLister interface {
	ListChildren(ctx context.Context, blockID, cursor string) (*BlockList, error)
}

// Exporter renders a page's block tree back to markdown.
type Exporter struct {
	client childLister
}

func NewExporter(client childLister) *Exporter {
	return &Exporter{client: client}
}

// PageMarkdown walks every child block of pageID, depth first.
func (e *Exporter) PageMarkdown(ctx context.Context, pageID string) (string, error) {
	var sb strings.Builder
	if err := e.render(ctx, &sb, pageID, 0); err != nil {
		return "", err
	}
	return blankRuns.ReplaceAllString(strings.TrimSpace(sb.String()), "\n\n") + "\n", nil
}

func (e *Exporter) children(ctx context.Context, blockID string) ([]Block, error) {
	var all []Block
	cursor := ""
	for {
		page, err := e.client.ListChildren(ctx, blockID, cursor)
		if err != nil {
			return nil, fmt.Errorf("list children of %s: %w", blockID, err)
		}
		all = append(all, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (e *Exporter) render(ctx context.Context, sb *strings.Builder, blockID string, depth int) error {
	blocks, err := e.children(ctx, blockID)
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)
	number := 0
	for i, b := range blocks {
		typ, _ := b["type"].(string)
		body, _ := b[typ].(map[string]any)
		rt := richTextMarkdown(body["rich_text"])

		if typ == "numbered_list_item" {
			number++
		} else {
			number = 0
		}

		nested := depth
		switch typ {
		case "paragraph":
			sb.WriteString(indent + rt + "\n\n")
		case "heading_1":
			sb.WriteString("# " + rt + "\n\n")
		case "heading_2":
			sb.WriteString("## " + rt + "\n\n")
		case "heading_3":
			sb.WriteString("### " + rt + "\n\n")
		case "bulleted_list_item":
			sb.WriteString(indent + "- " + rt + "\n")
			nested = depth + 1
		case "numbered_list_item":
			sb.WriteString(fmt.Sprintf("%s%d. %s\n", indent, number, rt))
			nested = depth + 1
		case "to_do":
			mark := " "
			if checked, _ := body["checked"].(bool); checked {
				mark = "x"
			}
			sb.WriteString(indent + "- [" + mark + "] " + rt + "\n")
			nested = depth + 1
		case "toggle":
			sb.WriteString(indent + "- " + rt + "\n")
			nested = depth + 1
		case "quote":
			sb.WriteString(indent + "> " + strings.ReplaceAll(rt, "\n", "\n> ") + "\n\n")
		case "callout":
			icon := ""
			if emoji, ok := dig(body, "icon", "emoji").(string); ok {
				icon = emoji + " "
			}
			sb.WriteString(indent + "> " + icon + rt + "\n\n")
		case "code":
			lang, _ := body["language"].(string)
			if lang == "plain text" {
				lang = ""
			}
			sb.WriteString(indent + "```" + lang + "\n" + plainRichText(body["rich_text"]) + "\n" + indent + "```\n\n")
		case "equation":
			expr, _ := body["expression"].(string)
			sb.WriteString("$$\n" + expr + "\n$$\n\n")
		case "divider":
			sb.WriteString("---\n\n")
		case "image":
			url, _ := dig(body, "external", "url").(string)
			if url == "" {
				url, _ = dig(body, "file", "url").(string)
			}
			sb.WriteString(indent + "![" + richTextMarkdown(body["caption"]) + "](" + url + ")\n\n")
		case "table":
			if err := e.renderTable(ctx, sb, b); err != nil {
				return err
			}
			continue
		case "child_page":
			title, _ := body["title"].(string)
			sb.WriteString(indent + "**" + title + "**\n\n")
			continue
		default:
			if rt != "" {
				sb.WriteString(indent + rt + "\n\n")
			}
		}

		if hasChildren, _ := b["has_children"].(bool); hasChildren {
			id, _ := b["id"].(string)
			if err := e.render(ctx, sb, id, nested); err != nil {
				return err
			}
		}
		if nested > depth && !(i+1 < len(blocks) && isListItem(blocks[i+1])) {
			sb.WriteString("\n")
		}
	}
	return nil
}

func (e *Exporter) renderTable(ctx context.Context, sb *strings.Builder, table Block) error {
	id, _ := table["id"].(string)
	rows, err := e.children(ctx, id)
	if err != nil {
		return err
	}
	body, _ := table["table"].(map[string]any)
	header, _ := body["has_column_header"].(bool)
	for i, row := range rows {
		cells, _ := dig(row, "table_row", "cells").([]any)
		parts := make([]string, len(cells))
		for j, c := range cells {
			parts[j] = strings.ReplaceAll(richTextMarkdown(c), "|", "\\|")
		}
		sb.WriteString("| " + strings.Join(parts, " | ") + " |\n")
		if i == 0 && header {
			sep := make([]string, len(cells))
			for j := range sep {
				sep[j] = "---"
			}
			sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
		}
	}
	sb.WriteString("\n")
	return nil
}

func isListItem(b Block) bool {
	switch b["type"] {
	case "bulleted_list_item", "numbered_list_item", "to_do", "toggle":
		return true
	}
	return false
}

func richTextMarkdown(v any) string {
	items, _ := v.([]any)
	var sb strings.Builder
	for _, it := range items {
		m, _ := it.(map[string]any)
		s := textOf(m)
		if s == "" {
			continue
		}
		if m["type"] == "equation" {
			sb.WriteString("$" + s + "$")
			continue
		}
		ann, _ := m["annotations"].(map[string]any)
		if b, _ := ann["code"].(bool); b {
			s = "`" + s + "`"
		}
		if b, _ := ann["bold"].(bool); b {
			s = "**" + s + "**"
		}
		if b, _ := ann["italic"].(bool); b {
			s = "*" + s + "*"
		}
		if b, _ := ann["strikethrough"].(bool); b {
			s = "~~" + s + "~~"
		}
		if href, _ := m["href"].(string); href != "" {
			s = "[" + s + "](" + href + ")"
		} else if u, ok := dig(m, "text", "link", "url").(string); ok && u != "" {
			s = "[" + s + "](" + u + ")"
		}
		sb.WriteString(s)
	}
	return sb.String()
}

func plainRichText(v any) string {
	items, _ := v.([]any)
	var sb strings.Builder
	for _, it := range items {
		m, _ := it.(map[string]any)
		sb.WriteString(textOf(m))
	}
	return sb.String()
}

func textOf(m map[string]any) string {
	if s, ok := m["plain_text"].(string); ok {
		return s
	}
	if s, ok := dig(m, "text", "content").(string); ok {
		return s
	}
	if s, ok := dig(m, "equation", "expression").(string); ok {
		return s
	}
	return ""
}
