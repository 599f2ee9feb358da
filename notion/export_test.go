package notion

import (
	"context"
	"testing"
)

type mapLister map[string][]BlockList

func (m mapLister) ListChildren(_ context.Context, blockID, cursor string) (*BlockList, error) {
	pages := m[blockID]
	idx := 0
	if cursor != "" {
		idx = int(cursor[0] - '0')
	}
	if idx >= len(pages) {
		return &BlockList{}, nil
	}
	return &pages[idx], nil
}

func rich(s string) []any {
	return []any{map[string]any{"type": "text", "plain_text": s}}
}

func TestPageMarkdown(t *testing.T) {
	lister := mapLister{
		"page": {
			{
				Results: []Block{
					{"type": "heading_1", "heading_1": map[string]any{"rich_text": rich("Paging")}},
					{"type": "paragraph", "paragraph": map[string]any{"rich_text": rich("Intro")}},
				},
				HasMore:    true,
				NextCursor: "1",
			},
			{
				Results: []Block{
					{"type": "numbered_list_item", "numbered_list_item": map[string]any{"rich_text": rich("one")}},
					{"id": "li2", "has_children": true, "type": "numbered_list_item", "numbered_list_item": map[string]any{"rich_text": rich("two")}},
					{"type": "code", "code": map[string]any{"language": "go", "rich_text": rich("x := 1")}},
				},
			},
		},
		"li2": {
			{Results: []Block{{"type": "bulleted_list_item", "bulleted_list_item": map[string]any{"rich_text": rich("nested")}}}},
		},
	}

	got, err := NewExporter(lister).PageMarkdown(context.Background(), "page")
	if err != nil {
		t.Fatalf("PageMarkdown() error = %v", err)
	}
	want := "# Paging\n\nIntro\n\n1. one\n2. two\n  - nested\n\n```go\nx := 1\n```\n"
	if got != want {
		t.Errorf("PageMarkdown() =\n%q\nwant\n%q", got, want)
	}
}

func TestRichTextMarkdownAnnotations(t *testing.T) {
	items := []any{
		map[string]any{"plain_text": "b", "annotations": map[string]any{"bold": true}},
		map[string]any{"plain_text": " "},
		map[string]any{"plain_text": "link", "href": "https://x.io"},
	}
	if got := richTextMarkdown(items); got != "**b** [link](https://x.io)" {
		t.Errorf("richTextMarkdown() = %q", got)
	}
}
