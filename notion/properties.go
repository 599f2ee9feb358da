package notion

import (
	"time"
)

// Property names used in the knowledge and problem databases.
const (
	PropName        = "Name"
	PropProblem     = "Problem"
	PropCreatedDate = "Created Date"
	PropLastReview  = "Last Review"
	PropRevisions   = "Revisions"
	PropResourceTag = "Resource Tag"
	PropNextReview  = "Next Review"
	PropEffort      = "Effort"
)

// MaxRevisions caps the stored revision counter.
const MaxRevisions = 5

const dateLayout = "2006-01-02"

// maxTitleLen bounds the page title property.
const maxTitleLen = 200

// PageProperties builds the properties of a new notes page.
func PageProperties(title, resourceTag string, now time.Time) map[string]any {
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	created := now.Format(dateLayout)
	props := map[string]any{
		PropName: map[string]any{
			"title": []any{map[string]any{"text": map[string]any{"content": title}}},
		},
		PropCreatedDate: dateProp(created),
		PropLastReview:  dateProp(created),
		PropRevisions:   map[string]any{"number": 0},
	}
	if resourceTag != "" {
		props[PropResourceTag] = map[string]any{"select": map[string]any{"name": resourceTag}}
	}
	return props
}

// DueFilter matches pages whose Next Review formula is today or earlier.
func DueFilter(today time.Time) map[string]any {
	return map[string]any{
		"property": PropNextReview,
		"formula": map[string]any{
			"date": map[string]any{"on_or_before": today.Format(dateLayout)},
		},
	}
}

func dateProp(day string) map[string]any {
	return map[string]any{"date": map[string]any{"start": day}}
}

// Title reads the plain text of a title property, or "" when absent.
func Title(props map[string]any, name string) string {
	items, _ := dig(props, name, "title").([]any)
	var out string
	for _, it := range items {
		m, _ := it.(map[string]any)
		if s, ok := m["plain_text"].(string); ok {
			out += s
			continue
		}
		if s, ok := dig(m, "text", "content").(string); ok {
			out += s
		}
	}
	return out
}

// SelectName reads a select property's option name.
func SelectName(props map[string]any, name string) string {
	s, _ := dig(props, name, "select", "name").(string)
	return s
}

// DateStart reads a date property's start.
func DateStart(props map[string]any, name string) string {
	s, _ := dig(props, name, "date", "start").(string)
	return s
}

// Number reads a number property; missing or null reads as 0.
func Number(props map[string]any, name string) int {
	switch n := dig(props, name, "number").(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[key]
	}
	return cur
}
