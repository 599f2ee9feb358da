package vector

import (
	"context"

	"revise/llm"
	"revise/storage"
)

// VectorStore keeps embedded chunks in named collections.
type VectorStore interface {
	// Upsert embeds and stores chunks, replacing any with the same chunk id.
	Upsert(ctx context.Context, collection string, chunks []llm.EmbeddingChunk) error

	// Search returns the topK chunks closest to query.
	Search(ctx context.Context, collection, query string, topK int) ([]llm.SearchResult, error)

	// DeleteByDoc removes every chunk of one document.
	DeleteByDoc(ctx context.Context, collection, docID string) error

	// Count returns the number of chunks in a collection.
	Count(ctx context.Context, collection string) (int64, error)

	Close() error
}

// CollectionName derives a collection from a resource tag.
func CollectionName(resourceTag string) string {
	if s := storage.Slugify(resourceTag); s != "" {
		return s
	}
	return "default"
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return 5
	}
	return min(topK, 100)
}
