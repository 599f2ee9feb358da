package vector

import (
	"testing"

	"github.com/bytedance/sonic"

	"revise/llm"
)

func TestEncodeVectorRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	b := encodeVector(in)
	if len(b) != 12 {
		t.Fatalf("encoded length = %d", len(b))
	}
	out := decodeVector(b)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestParseSearchReply(t *testing.T) {
	meta, _ := sonic.MarshalString(llm.ChunkMetadata{ChunkID: "c1", DocID: "p1"})
	reply := []any{
		int64(1),
		"revise:vec:os:c1",
		[]any{"content", "paging", "metadata", meta, "score", "0.25"},
	}
	res, err := parseSearchReply(reply)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %+v", res)
	}
	if res[0].Chunk.Content != "paging" || res[0].Chunk.Metadata.DocID != "p1" || res[0].Score != 0.75 {
		t.Errorf("result = %+v", res[0])
	}
	if _, err := parseSearchReply("bad"); err == nil {
		t.Error("expected error for non-list reply")
	}
}

func TestEscapeTag(t *testing.T) {
	if got := escapeTag("a-b c"); got != `a\-b\ c` {
		t.Errorf("escapeTag() = %q", got)
	}
}

func TestRedisNaming(t *testing.T) {
	s := newRedisStoreWithClient(nil, NewEmbeddingService(nil, 4), RedisConfig{})
	if s.indexName("Data Structures") != "revise:idx:data-structures" {
		t.Errorf("index = %q", s.indexName("Data Structures"))
	}
	if s.keyPrefix("OS") != "revise:vec:os:" {
		t.Errorf("prefix = %q", s.keyPrefix("OS"))
	}
}
