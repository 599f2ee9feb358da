package notion

import (
	"context"
	"strings"
	"testing"
)

func convert(t *testing.T, md string) []Block {
	t.Helper()
	blocks, err := NewGoldmarkConverter().Convert(context.Background(), md)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return blocks
}

func blockTypes(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i], _ = b["type"].(string)
	}
	return out
}

func body(b Block) map[string]any {
	typ, _ := b["type"].(string)
	m, _ := b[typ].(map[string]any)
	return m
}

func TestGoldmarkBlockTypes(t *testing.T) {
	md := "# Title\n\n#### Deep\n\nSome **bold** and *italic* text.\n\n" +
		"- one\n- two\n\n1. first\n2. second\n\n- [x] done\n- [ ] todo\n\n" +
		"```py\nprint(1)\n```\n\n> quoted\n\n---\n\n![diagram](https://example.com/a.png)\n"
	got := blockTypes(convert(t, md))
	want := []string{
		"heading_1", "heading_3", "paragraph",
		"bulleted_list_item", "bulleted_list_item",
		"numbered_list_item", "numbered_list_item",
		"to_do", "to_do",
		"code", "quote", "divider", "image",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("types =\n%v\nwant\n%v", got, want)
	}
}

func TestGoldmarkAnnotationsAndLinks(t *testing.T) {
	blocks := convert(t, "Plain **bold** `code` ~~gone~~ [site](https://example.com)\n")
	rt := body(blocks[0])["rich_text"].([]any)

	find := func(content string) map[string]any {
		for _, it := range rt {
			m := it.(map[string]any)
			if dig(m, "text", "content") == content {
				return m
			}
		}
		t.Fatalf("no rich text item %q in %v", content, rt)
		return nil
	}
	if b, _ := dig(find("bold"), "annotations", "bold").(bool); !b {
		t.Errorf("bold not annotated")
	}
	if b, _ := dig(find("code"), "annotations", "code").(bool); !b {
		t.Errorf("code not annotated")
	}
	if b, _ := dig(find("gone"), "annotations", "strikethrough").(bool); !b {
		t.Errorf("strikethrough not annotated")
	}
	if u := dig(find("site"), "text", "link", "url"); u != "https://example.com" {
		t.Errorf("link = %v", u)
	}
}

func TestGoldmarkNestedListChildren(t *testing.T) {
	blocks := convert(t, "- parent\n  - child\n")
	if len(blocks) != 1 {
		t.Fatalf("got %d top-level blocks", len(blocks))
	}
	children, _ := body(blocks[0])["children"].([]Block)
	if len(children) != 1 || children[0]["type"] != "bulleted_list_item" {
		t.Fatalf("children = %v", children)
	}
}

func TestGoldmarkCodeLanguage(t *testing.T) {
	cases := map[string]string{"py": "python", "": "plain text", "brainfuck": "plain text", "C++": "c++"}
	for in, want := range cases {
		if got := codeLanguage(in); got != want {
			t.Errorf("codeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
	blocks := convert(t, "```go\nfunc main() {}\n```\n")
	b := body(blocks[0])
	if b["language"] != "go" || plainRichText(b["rich_text"]) != "func main() {}" {
		t.Errorf("code block = %v", b)
	}
}

func TestGoldmarkSplitsLongText(t *testing.T) {
	long := strings.Repeat("a", maxRichText*2+10)
	rt := body(convert(t, long+"\n")[0])["rich_text"].([]any)
	if len(rt) != 3 {
		t.Fatalf("rich text items = %d, want 3", len(rt))
	}
}

func TestGoldmarkTable(t *testing.T) {
	blocks := convert(t, "| a | b |\n|---|---|\n| 1 | 2 |\n")
	if len(blocks) != 1 || blocks[0]["type"] != "table" {
		t.Fatalf("blocks = %v", blockTypes(blocks))
	}
	tb := body(blocks[0])
	if tb["table_width"] != 2 || tb["has_column_header"] != true {
		t.Errorf("table = %v", tb)
	}
	if rows := tb["children"].([]Block); len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
}

func TestGoldmarkRelativeImageStaysText(t *testing.T) {
	blocks := convert(t, "![local](img/a.png)\n")
	if blocks[0]["type"] != "paragraph" {
		t.Errorf("relative image should become a paragraph, got %v", blocks[0]["type"])
	}
}
