package tools

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/tool"

	"revise/llm"
	"revise/logger"
	"revise/notion"
)

type fakeNotion struct {
	due       map[string][]notion.Page
	notes     []notion.Page
	markdown  string
	err       error
	revisions []string
}

func (f *fakeNotion) FetchDue(_ context.Context, db string) ([]notion.Page, error) {
	return f.due[db], f.err
}

func (f *fakeNotion) FetchDueNotes(_ context.Context) ([]notion.Page, error) {
	return f.notes, f.err
}

func (f *fakeNotion) FetchPageMarkdown(_ context.Context, _ string) (string, error) {
	return f.markdown, f.err
}

func (f *fakeNotion) LogRevision(_ context.Context, pageID, effort string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.revisions = append(f.revisions, pageID+":"+effort)
	return true, nil
}

func titleProp(kind, text string) map[string]any {
	return map[string]any{kind: map[string]any{"title": []any{map[string]any{"plain_text": text}}}}
}

func problem(id, title, effort string) notion.Page {
	props := titleProp(notion.PropProblem, title)
	if effort != "" {
		props[notion.PropEffort] = map[string]any{"select": map[string]any{"name": effort}}
	}
	return notion.Page{ID: id, URL: "https://notion.so/" + id, Properties: props}
}

func findTool(t *testing.T, tools []tool.BaseTool, name string) tool.InvokableTool {
	t.Helper()
	for _, tl := range tools {
		info, err := tl.Info(context.Background())
		if err != nil {
			t.Fatalf("Info failed: %v", err)
		}
		if info.Name == name {
			return tl.(tool.InvokableTool)
		}
	}
	t.Fatalf("tool %q not registered", name)
	return nil
}

func TestSelectDSAProblemWeights(t *testing.T) {
	pages := []notion.Page{
		problem("hard", "Two Sum III", "Hard"),
		problem("medium", "LRU Cache", "Medium"),
		problem("easy", "Valid Parens", ""),
	}
	rng := rand.New(rand.NewPCG(7, 11))
	const n = 60000
	counts := map[string]int{}
	for range n {
		counts[SelectDSAProblem(pages, rng.Float64).ID]++
	}

	want := map[string]float64{"hard": 3.0 / 6, "medium": 2.0 / 6, "easy": 1.0 / 6}
	for id, p := range want {
		got := float64(counts[id]) / n
		if math.Abs(got-p) > 0.01 {
			t.Errorf("%s picked %.3f of the time, want about %.3f", id, got, p)
		}
	}
}

func TestSelectDSAProblemBoundaries(t *testing.T) {
	if SelectDSAProblem(nil, rand.Float64) != nil {
		t.Fatal("expected nil for no pages")
	}
	pages := []notion.Page{problem("a", "A", "Hard"), problem("b", "B", "Low")}
	if got := SelectDSAProblem(pages, func() float64 { return 0 }); got.ID != "a" {
		t.Errorf("draw 0 picked %s", got.ID)
	}
	// weights 3 and 1: 0.76*4 = 3.04 lands in the second bucket
	if got := SelectDSAProblem(pages, func() float64 { return 0.76 }); got.ID != "b" {
		t.Errorf("draw 0.76 picked %s", got.ID)
	}
}

func TestFetchDSAProblem(t *testing.T) {
	api := &fakeNotion{due: map[string][]notion.Page{"dsa-db": {problem("p1", "Merge Intervals", "Medium")}}}
	ts := NewNotionToolset(api, "dsa-db", logger.Nop())

	got, err := ts.FetchDSAProblem(context.Background(), noArgs{})
	if err != nil {
		t.Fatalf("FetchDSAProblem failed: %v", err)
	}
	if got == nil || got.PageID != "p1" || got.Title != "Merge Intervals" || got.URL != "https://notion.so/p1" {
		t.Errorf("unexpected problem: %+v", got)
	}

	api.due = nil
	got, err = ts.FetchDSAProblem(context.Background(), noArgs{})
	if err != nil || got != nil {
		t.Errorf("expected nil, nil when nothing is due, got %+v, %v", got, err)
	}

	ts = NewNotionToolset(api, "", logger.Nop())
	if _, err := ts.FetchDSAProblem(context.Background(), noArgs{}); !errors.Is(err, llm.ErrValidation) {
		t.Errorf("expected validation error without a database, got %v", err)
	}
}

func TestNotionToolsInvoke(t *testing.T) {
	ctx := context.Background()
	api := &fakeNotion{
		notes:    []notion.Page{{ID: "n1", URL: "https://notion.so/n1", Properties: titleProp(notion.PropName, "Paging")}},
		markdown: "# Paging\n",
	}
	tools, err := NewNotionToolset(api, "dsa", logger.Nop()).Tools()
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	if len(tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(tools))
	}

	out, err := findTool(t, tools, "fetch_due_notes").InvokableRun(ctx, `{}`)
	if err != nil {
		t.Fatalf("fetch_due_notes failed: %v", err)
	}
	if !strings.Contains(out, `"page_id":"n1"`) || !strings.Contains(out, `"title":"Paging"`) {
		t.Errorf("unexpected due notes output: %s", out)
	}

	out, err = findTool(t, tools, "fetch_page_content").InvokableRun(ctx, `{"page_id":"n1"}`)
	if err != nil || !strings.Contains(out, "# Paging") {
		t.Errorf("fetch_page_content = %q, %v", out, err)
	}

	out, err = findTool(t, tools, "log_revision").InvokableRun(ctx, `{"page_id":"n1","effort":"High"}`)
	if err != nil || out != "true" {
		t.Errorf("log_revision = %q, %v", out, err)
	}
	if len(api.revisions) != 1 || api.revisions[0] != "n1:High" {
		t.Errorf("unexpected revisions: %v", api.revisions)
	}
}
