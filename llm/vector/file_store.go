package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"revise/llm"
)

// fileData is the JSON layout of one collection file.
type fileData struct {
	Version   string       `json:"version"`
	UpdatedAt string       `json:"updated_at"`
	Records   []fileRecord `json:"records"`
}

type fileRecord struct {
	Chunk  llm.EmbeddingChunk `json:"chunk"`
	Vector []float32          `json:"vector"`
}

// FileStore keeps each collection in <dir>/<collection>.json and searches by
// cosine similarity in memory.
type FileStore struct {
	dir       string
	embedding *EmbeddingService
	mu        sync.Mutex
}

func NewFileStore(dir string, svc *EmbeddingService) (*FileStore, error) {
	if svc == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}
	return &FileStore{dir: dir, embedding: svc}, nil
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, CollectionName(collection)+".json")
}

func (s *FileStore) load(collection string) (*fileData, error) {
	data, err := os.ReadFile(s.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return &fileData{Version: "1"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	var fd fileData
	if err := sonic.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parse collection %s: %w", collection, err)
	}
	return &fd, nil
}

func (s *FileStore) save(collection string, fd *fileData) error {
	fd.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := sonic.ConfigStd.MarshalIndent(fd, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}
	tmp := s.path(collection) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	return os.Rename(tmp, s.path(collection))
}

func (s *FileStore) Upsert(ctx context.Context, collection string, chunks []llm.EmbeddingChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fd, err := s.load(collection)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(fd.Records))
	for i, r := range fd.Records {
		index[r.Chunk.Metadata.ChunkID] = i
	}
	for i, c := range chunks {
		if vectors[i] == nil {
			continue
		}
		rec := fileRecord{Chunk: c, Vector: vectors[i]}
		if at, ok := index[c.Metadata.ChunkID]; ok {
			fd.Records[at] = rec
			continue
		}
		index[c.Metadata.ChunkID] = len(fd.Records)
		fd.Records = append(fd.Records, rec)
	}
	return s.save(collection, fd)
}

func (s *FileStore) Search(ctx context.Context, collection, query string, topK int) ([]llm.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	qv, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	fd, err := s.load(collection)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results := make([]llm.SearchResult, 0, len(fd.Records))
	for _, r := range fd.Records {
		results = append(results, llm.SearchResult{Chunk: r.Chunk, Score: cosineSimilarity(qv, r.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k := clampTopK(topK); len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *FileStore) DeleteByDoc(_ context.Context, collection, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd, err := s.load(collection)
	if err != nil {
		return err
	}
	kept := fd.Records[:0]
	for _, r := range fd.Records {
		if r.Chunk.Metadata.DocID != docID {
			kept = append(kept, r)
		}
	}
	fd.Records = kept
	return s.save(collection, fd)
}

func (s *FileStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd, err := s.load(collection)
	if err != nil {
		return 0, err
	}
	return int64(len(fd.Records)), nil
}

func (s *FileStore) Close() error { return nil }

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
