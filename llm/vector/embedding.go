package vector

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"revise/llm"
)

// EmbeddingService wraps an embedding model for vector generation
type EmbeddingService struct {
	embedder embedding.Embedder
	dim      int
}

func NewEmbeddingService(embedder embedding.Embedder, dim int) *EmbeddingService {
	if dim <= 0 {
		dim = 1536
	}
	return &EmbeddingService{embedder: embedder, dim: dim}
}

// Embed generates an embedding vector for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one call. Empty texts get a nil vector.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	var valid []string
	var indices []int
	for i, text := range texts {
		if text != "" {
			valid = append(valid, text)
			indices = append(indices, i)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid texts to embed")
	}

	vectors, err := s.embedder.EmbedStrings(ctx, valid)
	if err != nil {
		return nil, llm.External("embedding", err)
	}
	if len(vectors) != len(valid) {
		return nil, llm.External("embedding", fmt.Errorf("got %d vectors for %d texts", len(vectors), len(valid)))
	}

	result := make([][]float32, len(texts))
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, llm.External("embedding", fmt.Errorf("empty embedding for text %d", indices[i]))
		}
		out := make([]float32, len(vec))
		for j, v := range vec {
			out[j] = float32(v)
		}
		result[indices[i]] = out
	}
	return result, nil
}

// Dimension returns the configured embedding dimension
func (s *EmbeddingService) Dimension() int {
	return s.dim
}
