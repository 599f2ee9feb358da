package notion

import (
	"regexp"
	"strings"
)

var listItem = regexp.MustCompile(`^(\s*)([*\-+])\s+(.*)$`)

// maxListLevel is the deepest list nesting the API accepts in one request.
const maxListLevel = 2

// FlattenNestedLists rewrites list items nested deeper than level 2 so they
// sit at level 2 with a "-"*(level-1)+"> " marker in front of their text.
// Running it twice gives the same output as running it once.
func FlattenNestedLists(markdown string, indentSize int) string {
	if indentSize <= 0 {
		indentSize = 2
	}
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		m := listItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, bullet, content := m[1], m[2], m[3]
		level := len(indent) / indentSize
		if level <= maxListLevel {
			continue
		}
		prefix := strings.Repeat("-", level-1) + "> "
		lines[i] = strings.Repeat(" ", maxListLevel*indentSize) + bullet + " " + prefix + content
	}
	return strings.Join(lines, "\n")
}
