package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"revise/llm/vector"
	"revise/logger"
)

// KnowledgeToolset searches the indexed note chunks.
type KnowledgeToolset struct {
	store vector.VectorStore
	log   *logger.Logger
}

func NewKnowledgeToolset(store vector.VectorStore, log *logger.Logger) *KnowledgeToolset {
	return &KnowledgeToolset{store: store, log: log.With("toolset", "knowledge")}
}

type SearchNotesParams struct {
	Query       string `json:"query" jsonschema:"description=What to look for in the notes"`
	ResourceTag string `json:"resource_tag" jsonschema:"description=Resource tag the notes were filed under, for example the course or book"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"description=Number of passages to return, default 5, at most 10"`
}

// SearchNotes returns the passages closest to the query.
func (t *KnowledgeToolset) SearchNotes(ctx context.Context, in SearchNotesParams) (string, error) {
	t.log.Info("TOOL_USAGE: searching notes", "resource_tag", in.ResourceTag)
	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("query cannot be empty")
	}
	topK := in.TopK
	if topK <= 0 {
		topK = 5
	}
	topK = min(topK, 10)

	collection := vector.CollectionName(in.ResourceTag)
	results, err := t.store.Search(ctx, collection, in.Query, topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		if n, err := t.store.Count(ctx, collection); err != nil || n == 0 {
			return Error(fmt.Sprintf("Nothing is indexed for resource tag %q yet.", in.ResourceTag))
		}
		return Success("No matching passages in the notes.", &Metadata{Collection: collection})
	}

	var sb strings.Builder
	for i, r := range results {
		m := r.Chunk.Metadata
		fmt.Fprintf(&sb, "--- %d. %s (score %.2f) ---\n", i+1, m.ChapterName, r.Score)
		if len(m.Headings) > 0 {
			sb.WriteString("Section: " + strings.Join(m.Headings, " > ") + "\n")
		}
		sb.WriteString(r.Chunk.Content)
		if m.PageURL != "" {
			sb.WriteString("\nSource: " + m.PageURL)
		}
		sb.WriteString("\n\n")
	}
	return Success(strings.TrimSpace(sb.String()), &Metadata{Collection: collection, MatchCount: len(results)})
}

func (t *KnowledgeToolset) Tools() ([]tool.BaseTool, error) {
	search, err := utils.InferTool("search_notes",
		"Search the student's indexed notes for passages related to a query. Use it to answer questions about material the student has captured.",
		t.SearchNotes)
	if err != nil {
		return nil, fmt.Errorf("build knowledge tool: %w", err)
	}
	return []tool.BaseTool{search}, nil
}
