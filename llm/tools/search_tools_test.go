package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"revise/llm"
	"revise/llm/llmtest"
	"revise/llm/vector"
	"revise/logger"
)

func TestSearchNotes(t *testing.T) {
	ctx := context.Background()
	store, err := vector.NewFileStore(t.TempDir(), vector.NewEmbeddingService(&llmtest.Embedder{Dim: 8}, 8))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	doc := llm.PublishedResult{
		MarkdownResult: llm.MarkdownResult{
			ChapterName: "Chapter 2",
			ResourceTag: "OS",
			Markdown:    "## Paging\n\nPages map virtual to physical frames.\n",
		},
		Page: llm.PageRef{ID: "p1", URL: "https://notion.so/p1"},
	}
	chunks := vector.BuildChunks(doc, vector.ChunkConfig{Length: vector.ApproxTokens}, time.Now())
	if err := store.Upsert(ctx, vector.CollectionName("OS"), chunks); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	ts := NewKnowledgeToolset(store, logger.Nop())
	out, err := ts.SearchNotes(ctx, SearchNotesParams{Query: "paging", ResourceTag: "OS"})
	if err != nil {
		t.Fatalf("SearchNotes failed: %v", err)
	}
	for _, want := range []string{"Chapter 2", "Section: Paging", "physical frames", "Source: https://notion.so/p1", "matches=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = ts.SearchNotes(ctx, SearchNotesParams{Query: "paging", ResourceTag: "Networks"})
	if err != nil || out != `[ERROR] Nothing is indexed for resource tag "Networks" yet.` {
		t.Errorf("unindexed collection = %q, %v", out, err)
	}

	if _, err := ts.SearchNotes(ctx, SearchNotesParams{Query: "  "}); err == nil {
		t.Error("expected error for blank query")
	}
}
