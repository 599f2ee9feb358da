package vector

import (
	"context"
	"errors"
	"testing"

	"revise/llm"
	"revise/llm/llmtest"
)

func chunk(id, doc, content string) llm.EmbeddingChunk {
	return llm.EmbeddingChunk{Content: content, Metadata: llm.ChunkMetadata{ChunkID: id, DocID: doc}}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	emb := &llmtest.Embedder{Dim: 8}
	store, err := NewFileStore(t.TempDir(), NewEmbeddingService(emb, 8))
	if err != nil {
		t.Fatal(err)
	}

	err = store.Upsert(ctx, "OS", []llm.EmbeddingChunk{
		chunk("c1", "d1", "paging"),
		chunk("c2", "d1", "segmentation and more"),
		chunk("c3", "d2", "scheduling"),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n, _ := store.Count(ctx, "OS"); n != 3 {
		t.Fatalf("Count() = %d, want 3", n)
	}

	// same chunk id replaces
	if err := store.Upsert(ctx, "OS", []llm.EmbeddingChunk{chunk("c1", "d1", "paging v2")}); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(ctx, "OS"); n != 3 {
		t.Fatalf("Count() after replace = %d, want 3", n)
	}

	res, err := store.Search(ctx, "OS", "paging", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res) != 2 || res[0].Score < res[1].Score {
		t.Fatalf("results = %+v", res)
	}

	if err := store.DeleteByDoc(ctx, "OS", "d1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(ctx, "OS"); n != 1 {
		t.Errorf("Count() after delete = %d, want 1", n)
	}
	if n, _ := store.Count(ctx, "other"); n != 0 {
		t.Errorf("empty collection count = %d", n)
	}
}

func TestFileStoreEmbeddingFailure(t *testing.T) {
	emb := &llmtest.Embedder{Err: errors.New("quota")}
	store, _ := NewFileStore(t.TempDir(), NewEmbeddingService(emb, 4))
	err := store.Upsert(context.Background(), "x", []llm.EmbeddingChunk{chunk("c", "d", "t")})
	if !errors.Is(err, llm.ErrExternalCall) {
		t.Fatalf("expected external call failure, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if s := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); s < 0.999 {
		t.Errorf("identical vectors = %v", s)
	}
	if s := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); s != 0 {
		t.Errorf("orthogonal vectors = %v", s)
	}
	if s := cosineSimilarity([]float32{1}, []float32{1, 2}); s != 0 {
		t.Errorf("mismatched dims = %v", s)
	}
}
