package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"revise/llm"
)

const (
	defaultEFConstruction = 200
	defaultM              = 16

	// Field names in the Redis hash
	fieldContent     = "content"
	fieldVector      = "vector"
	fieldDocID       = "doc_id"
	fieldResourceTag = "resource_tag"
	fieldChapter     = "chapter_name"
	fieldChunkIndex  = "chunk_index"
	fieldCreatedAt   = "created_at"
	fieldHash        = "content_hash"
	fieldMetadata    = "metadata"
	fieldScore       = "score"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	Namespace      string
	VectorDim      int
	EFConstruction int
	M              int
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.Namespace == "" {
		c.Namespace = "revise"
	}
	if c.EFConstruction <= 0 {
		c.EFConstruction = defaultEFConstruction
	}
	if c.M <= 0 {
		c.M = defaultM
	}
	return c
}

// RedisStore implements VectorStore on RediSearch. Each collection gets its
// own HNSW index over hashes under <namespace>:vec:<collection>:.
type RedisStore struct {
	client    redis.UniversalClient
	embedding *EmbeddingService
	cfg       RedisConfig

	mu      sync.Mutex
	indexed map[string]bool
}

// NewRedisStore connects and pings. Indexes are created lazily per collection.
func NewRedisStore(ctx context.Context, svc *EmbeddingService, cfg RedisConfig) (*RedisStore, error) {
	if svc == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	cfg = cfg.withDefaults()
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = svc.Dimension()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, llm.External("redis", fmt.Errorf("connect %s: %w", cfg.Addr, err))
	}
	return newRedisStoreWithClient(client, svc, cfg), nil
}

func newRedisStoreWithClient(client redis.UniversalClient, svc *EmbeddingService, cfg RedisConfig) *RedisStore {
	return &RedisStore{client: client, embedding: svc, cfg: cfg.withDefaults(), indexed: map[string]bool{}}
}

func (s *RedisStore) indexName(collection string) string {
	return s.cfg.Namespace + ":idx:" + CollectionName(collection)
}

func (s *RedisStore) keyPrefix(collection string) string {
	return s.cfg.Namespace + ":vec:" + CollectionName(collection) + ":"
}

// ensureIndex creates the HNSW vector index for collection if missing.
func (s *RedisStore) ensureIndex(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed[collection] {
		return nil
	}
	name := s.indexName(collection)
	if err := s.client.Do(ctx, "FT.INFO", name).Err(); err == nil {
		s.indexed[collection] = true
		return nil
	}
	err := s.client.Do(ctx, "FT.CREATE", name,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix(collection),
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.cfg.VectorDim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(s.cfg.EFConstruction),
		"M", strconv.Itoa(s.cfg.M),
		fieldContent, "TEXT",
		fieldDocID, "TAG",
		fieldResourceTag, "TAG",
		fieldChapter, "TEXT",
		fieldChunkIndex, "NUMERIC",
		fieldCreatedAt, "NUMERIC",
		fieldHash, "TAG",
	).Err()
	if err != nil {
		return llm.External("redis", fmt.Errorf("create index %s: %w", name, err))
	}
	s.indexed[collection] = true
	return nil
}

func (s *RedisStore) Upsert(ctx context.Context, collection string, chunks []llm.EmbeddingChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureIndex(ctx, collection); err != nil {
		return err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for i, c := range chunks {
		if vectors[i] == nil {
			continue
		}
		meta, err := sonic.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		created := c.Metadata.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		pipe.HSet(ctx, s.keyPrefix(collection)+c.Metadata.ChunkID,
			fieldContent, c.Content,
			fieldVector, encodeVector(vectors[i]),
			fieldDocID, c.Metadata.DocID,
			fieldResourceTag, c.Metadata.ResourceTag,
			fieldChapter, c.Metadata.ChapterName,
			fieldChunkIndex, c.Metadata.ChunkIndex,
			fieldCreatedAt, created.Unix(),
			fieldHash, c.Metadata.ContentHash,
			fieldMetadata, string(meta),
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return llm.External("redis", fmt.Errorf("insert chunks: %w", err))
	}
	return nil
}

// encodeVector packs a vector as little endian FLOAT32, the layout RediSearch
// expects for HNSW fields and query parameters.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func (s *RedisStore) Search(ctx context.Context, collection, query string, topK int) ([]llm.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if err := s.ensureIndex(ctx, collection); err != nil {
		return nil, err
	}
	topK = clampTopK(topK)
	qv, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	reply, err := s.client.Do(ctx, "FT.SEARCH", s.indexName(collection),
		fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", topK, fieldVector, fieldScore),
		"PARAMS", "2", "query_vector", encodeVector(qv),
		"SORTBY", fieldScore,
		"RETURN", "3", fieldContent, fieldMetadata, fieldScore,
		"LIMIT", "0", strconv.Itoa(topK),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, llm.External("redis", fmt.Errorf("vector search: %w", err))
	}
	return parseSearchReply(reply)
}

// parseSearchReply reads an FT.SEARCH reply: a count followed by key and
// field list pairs. The KNN score is a cosine distance.
func parseSearchReply(reply any) ([]llm.SearchResult, error) {
	values, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected search reply %T", reply)
	}
	results := []llm.SearchResult{}
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}
		var res llm.SearchResult
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			val := redisString(fields[j+1])
			switch name {
			case fieldContent:
				res.Chunk.Content = val
			case fieldMetadata:
				_ = sonic.UnmarshalString(val, &res.Chunk.Metadata)
			case fieldScore:
				if d, err := strconv.ParseFloat(val, 32); err == nil {
					res.Score = float32(1 - d)
				}
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func redisString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// escapeTag escapes TAG query punctuation.
func escapeTag(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *RedisStore) DeleteByDoc(ctx context.Context, collection, docID string) error {
	if docID == "" {
		return llm.Missing("doc_id")
	}
	if err := s.ensureIndex(ctx, collection); err != nil {
		return err
	}
	reply, err := s.client.Do(ctx, "FT.SEARCH", s.indexName(collection),
		fmt.Sprintf("@%s:{%s}", fieldDocID, escapeTag(docID)),
		"NOCONTENT",
		"LIMIT", "0", "10000",
	).Result()
	if err != nil {
		return llm.External("redis", fmt.Errorf("find chunks of %s: %w", docID, err))
	}
	values, _ := reply.([]any)
	var keys []string
	for _, v := range values[min(1, len(values)):] {
		keys = append(keys, redisString(v))
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Count(ctx context.Context, collection string) (int64, error) {
	info, err := s.client.Do(ctx, "FT.INFO", s.indexName(collection)).Result()
	if err != nil {
		return 0, llm.External("redis", fmt.Errorf("index info: %w", err))
	}
	values, ok := info.([]any)
	if !ok {
		return 0, fmt.Errorf("unexpected info format")
	}
	for i := 0; i+1 < len(values); i += 2 {
		if key, _ := values[i].(string); key == "num_docs" {
			n, err := strconv.ParseInt(redisString(values[i+1]), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("parse num_docs: %w", err)
			}
			return n, nil
		}
	}
	return 0, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
