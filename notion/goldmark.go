package notion

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// maxRichText is the API limit on one rich text item's content.
const maxRichText = 2000

// GoldmarkConverter converts markdown to blocks in process.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

func NewGoldmarkConverter() *GoldmarkConverter {
	return &GoldmarkConverter{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (c *GoldmarkConverter) Convert(_ context.Context, markdown string) ([]Block, error) {
	src := []byte(markdown)
	doc := c.md.Parser().Parse(text.NewReader(src))
	w := &blockWriter{src: src}
	return w.children(doc), nil
}

type blockWriter struct {
	src []byte
}

func (w *blockWriter) children(parent ast.Node) []Block {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, w.block(n)...)
	}
	return out
}

func (w *blockWriter) block(n ast.Node) []Block {
	switch node := n.(type) {
	case *ast.Heading:
		level := node.Level
		if level > 3 {
			level = 3
		}
		typ := "heading_" + string(rune('0'+level))
		return []Block{newBlock(typ, map[string]any{"rich_text": w.richText(node)})}

	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := soleImage(node); ok {
			if b, ok := w.image(img); ok {
				return []Block{b}
			}
		}
		rt := w.richText(node)
		if len(rt) == 0 {
			return nil
		}
		return []Block{newBlock("paragraph", map[string]any{"rich_text": rt})}

	case *ast.List:
		var out []Block
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			out = append(out, w.listItem(node, item))
		}
		return out

	case *ast.FencedCodeBlock:
		return []Block{codeBlock(w.lines(node), string(node.Language(w.src)))}

	case *ast.CodeBlock:
		return []Block{codeBlock(w.lines(node), "")}

	case *ast.Blockquote:
		first := node.FirstChild()
		body := map[string]any{"rich_text": []any{}}
		if first != nil {
			body["rich_text"] = w.richText(first)
			var rest []Block
			for n := first.NextSibling(); n != nil; n = n.NextSibling() {
				rest = append(rest, w.block(n)...)
			}
			if len(rest) > 0 {
				body["children"] = rest
			}
		}
		return []Block{newBlock("quote", body)}

	case *ast.ThematicBreak:
		return []Block{newBlock("divider", map[string]any{})}

	case *ast.HTMLBlock:
		content := strings.TrimSpace(w.lines(node))
		if content == "" {
			return nil
		}
		return []Block{newBlock("paragraph", map[string]any{"rich_text": plainText(content)})}

	case *east.Table:
		return []Block{w.table(node)}
	}
	return w.children(n)
}

func (w *blockWriter) listItem(list *ast.List, item ast.Node) Block {
	typ := "bulleted_list_item"
	if list.IsOrdered() {
		typ = "numbered_list_item"
	}
	body := map[string]any{"rich_text": []any{}}
	first := item.FirstChild()
	if first != nil {
		if cb, ok := first.FirstChild().(*east.TaskCheckBox); ok {
			typ = "to_do"
			body["checked"] = cb.IsChecked
		}
		body["rich_text"] = w.richText(first)
		var nested []Block
		for n := first.NextSibling(); n != nil; n = n.NextSibling() {
			nested = append(nested, w.block(n)...)
		}
		if len(nested) > 0 {
			body["children"] = nested
		}
	}
	return newBlock(typ, body)
}

func (w *blockWriter) table(t *east.Table) Block {
	var rows []Block
	width := 0
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []any
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, w.richText(cell))
		}
		if len(cells) > width {
			width = len(cells)
		}
		rows = append(rows, newBlock("table_row", map[string]any{"cells": cells}))
	}
	for _, r := range rows {
		body := r["table_row"].(map[string]any)
		cells := body["cells"].([]any)
		for len(cells) < width {
			cells = append(cells, []any{})
		}
		body["cells"] = cells
	}
	_, hasHeader := t.FirstChild().(*east.TableHeader)
	return newBlock("table", map[string]any{
		"table_width":       width,
		"has_column_header": hasHeader,
		"has_row_header":    false,
		"children":          rows,
	})
}

func (w *blockWriter) image(img *ast.Image) (Block, bool) {
	dest := string(img.Destination)
	if !strings.HasPrefix(dest, "http://") && !strings.HasPrefix(dest, "https://") {
		return nil, false
	}
	body := map[string]any{"type": "external", "external": map[string]any{"url": dest}}
	if caption := w.richText(img); len(caption) > 0 {
		body["caption"] = caption
	}
	return newBlock("image", body), true
}

func (w *blockWriter) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(w.src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

type annotations struct {
	bold, italic, strike, code bool
	link                       string
}

func (w *blockWriter) richText(n ast.Node) []any {
	var out []any
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.inline(c, annotations{}, &out)
	}
	return out
}

func (w *blockWriter) inline(n ast.Node, ann annotations, out *[]any) {
	switch node := n.(type) {
	case *ast.Text:
		s := string(node.Value(w.src))
		if node.HardLineBreak() {
			s += "\n"
		} else if node.SoftLineBreak() {
			s += " "
		}
		appendText(out, s, ann)
		return
	case *ast.String:
		appendText(out, string(node.Value), ann)
		return
	case *ast.CodeSpan:
		ann.code = true
	case *ast.Emphasis:
		if node.Level >= 2 {
			ann.bold = true
		} else {
			ann.italic = true
		}
	case *east.Strikethrough:
		ann.strike = true
	case *ast.Link:
		ann.link = string(node.Destination)
	case *ast.Image:
		ann.link = string(node.Destination)
	case *ast.AutoLink:
		u := string(node.URL(w.src))
		ann.link = u
		appendText(out, string(node.Label(w.src)), ann)
		return
	case *ast.RawHTML:
		var sb strings.Builder
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			sb.Write(seg.Value(w.src))
		}
		appendText(out, sb.String(), ann)
		return
	case *east.TaskCheckBox:
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.inline(c, ann, out)
	}
}

func appendText(out *[]any, s string, ann annotations) {
	if s == "" {
		return
	}
	r := []rune(s)
	for len(r) > 0 {
		n := len(r)
		if n > maxRichText {
			n = maxRichText
		}
		*out = append(*out, richTextItem(string(r[:n]), ann))
		r = r[n:]
	}
}

func richTextItem(content string, ann annotations) map[string]any {
	t := map[string]any{"content": content}
	if ann.link != "" && (strings.HasPrefix(ann.link, "http://") || strings.HasPrefix(ann.link, "https://")) {
		t["link"] = map[string]any{"url": ann.link}
	}
	return map[string]any{
		"type": "text",
		"text": t,
		"annotations": map[string]any{
			"bold":          ann.bold,
			"italic":        ann.italic,
			"strikethrough": ann.strike,
			"underline":     false,
			"code":          ann.code,
			"color":         "default",
		},
	}
}

func plainText(s string) []any {
	var out []any
	appendText(&out, s, annotations{})
	return out
}

func newBlock(typ string, body map[string]any) Block {
	return Block{"object": "block", "type": typ, typ: body}
}

func codeBlock(content, lang string) Block {
	return newBlock("code", map[string]any{
		"rich_text": plainText(content),
		"language":  codeLanguage(lang),
	})
}

var languageAliases = map[string]string{
	"":           "plain text",
	"text":       "plain text",
	"txt":        "plain text",
	"py":         "python",
	"python":     "python",
	"js":         "javascript",
	"javascript": "javascript",
	"ts":         "typescript",
	"typescript": "typescript",
	"go":         "go",
	"golang":     "go",
	"java":       "java",
	"c":          "c",
	"cpp":        "c++",
	"c++":        "c++",
	"cs":         "c#",
	"csharp":     "c#",
	"rust":       "rust",
	"sh":         "shell",
	"shell":      "shell",
	"bash":       "bash",
	"sql":        "sql",
	"json":       "json",
	"yaml":       "yaml",
	"yml":        "yaml",
	"html":       "html",
	"css":        "css",
	"latex":      "latex",
	"tex":        "latex",
	"markdown":   "markdown",
	"md":         "markdown",
	"kotlin":     "kotlin",
	"swift":      "swift",
	"ruby":       "ruby",
	"haskell":    "haskell",
	"scala":      "scala",
	"r":          "r",
	"matlab":     "matlab",
	"mermaid":    "mermaid",
}

func codeLanguage(lang string) string {
	if l, ok := languageAliases[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return l
	}
	return "plain text"
}

func soleImage(n ast.Node) (*ast.Image, bool) {
	if n.ChildCount() != 1 {
		return nil, false
	}
	img, ok := n.FirstChild().(*ast.Image)
	return img, ok
}
