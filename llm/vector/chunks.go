package vector

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"revise/llm"
)

// ContentHash is the hex sha256 of the UTF-8 content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// BuildChunks splits a published document and stamps every chunk with its
// page back-reference, a fresh chunk id and the content hash.
func BuildChunks(doc llm.PublishedResult, cfg ChunkConfig, now time.Time) []llm.EmbeddingChunk {
	pieces := ChunkMarkdown(doc.Markdown, cfg)
	out := make([]llm.EmbeddingChunk, len(pieces))
	for i, p := range pieces {
		out[i] = llm.EmbeddingChunk{
			Content: p.Content,
			Metadata: llm.ChunkMetadata{
				ChunkIndex:  i,
				ChunkCount:  len(pieces),
				CreatedAt:   now,
				DocID:       doc.Page.ID,
				ChunkID:     uuid.NewString(),
				ResourceTag: doc.ResourceTag,
				ChapterName: doc.ChapterName,
				PageID:      doc.Page.ID,
				PageURL:     doc.Page.URL,
				ContentHash: ContentHash(p.Content),
				Headings:    p.Headings,
			},
		}
	}
	return out
}
