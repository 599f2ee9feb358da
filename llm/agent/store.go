package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

// ConversationStore keeps the chat history between turns.
type ConversationStore interface {
	Add(ctx context.Context, msg *schema.Message) error
	List(ctx context.Context) ([]*schema.Message, error)
	Clear(ctx context.Context) error
}

// MemoryStore is a sliding window over the most recent messages. Long tool
// results are truncated on the way in.
type MemoryStore struct {
	mu              sync.RWMutex
	msgs            []*schema.Message
	maxMessages     int
	maxToolResponse int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		msgs:            make([]*schema.Message, 0),
		maxMessages:     20,
		maxToolResponse: 2000,
	}
}

func (s *MemoryStore) Add(_ context.Context, msg *schema.Message) error {
	if msg == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Role == schema.Tool {
		msg = s.compressToolResponse(msg)
	}
	s.msgs = append(s.msgs, msg)

	if len(s.msgs) > s.maxMessages {
		s.msgs = s.msgs[len(s.msgs)-s.maxMessages:]
		// a tool result without its assistant call is rejected by providers
		for len(s.msgs) > 0 && s.msgs[0].Role == schema.Tool {
			s.msgs = s.msgs[1:]
		}
	}
	return nil
}

func (s *MemoryStore) compressToolResponse(msg *schema.Message) *schema.Message {
	if len(msg.Content) <= s.maxToolResponse {
		return msg
	}
	originalLen := len(msg.Content)
	limit := s.maxToolResponse
	for limit > 0 && !utf8.RuneStart(msg.Content[limit]) {
		limit--
	}
	truncated := msg.Content[:limit]

	cutoff := limit
	for _, bp := range []string{".\n", ". ", "\n\n", "\n"} {
		if idx := strings.LastIndex(truncated, bp); idx > s.maxToolResponse/2 {
			cutoff = idx + len(bp)
			break
		}
	}
	compressed := msg.Content[:cutoff] + fmt.Sprintf(
		"\n\n[Content truncated: original %d chars -> %d chars, saved %.1f%%]",
		originalLen, cutoff, float64(originalLen-cutoff)/float64(originalLen)*100,
	)

	out := *msg
	out.Content = compressed
	return &out
}

func (s *MemoryStore) List(_ context.Context) ([]*schema.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*schema.Message, len(s.msgs))
	copy(result, s.msgs)
	return result, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	return nil
}
