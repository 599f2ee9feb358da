// Package llmtest provides scripted eino components for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel replays Replies in order and records every request. When the
// script runs out, the last reply repeats. Reply, when set, overrides the
// script.
type ChatModel struct {
	mu      sync.Mutex
	Replies []*schema.Message
	Reply   func(msgs []*schema.Message) (*schema.Message, error)
	Err     error

	Calls [][]*schema.Message
	Tools []*schema.ToolInfo
}

func (m *ChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, input)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Reply != nil {
		return m.Reply(input)
	}
	if len(m.Replies) == 0 {
		return nil, errors.New("llmtest: no scripted reply")
	}
	idx := min(len(m.Calls)-1, len(m.Replies)-1)
	return m.Replies[idx], nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools records the bound tools and returns the same model so calls
// stay visible to the test.
func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tools = tools
	return m, nil
}

// CallCount is safe for concurrent use.
func (m *ChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Text is a plain assistant reply.
func Text(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

// ToolCall is an assistant reply requesting one tool call.
func ToolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

// Embedder returns a fixed-size vector derived from each text's length.
type Embedder struct {
	Dim   int
	Err   error
	Calls int
}

func (e *Embedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	dim := e.Dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v := make([]float64, dim)
		for j := range v {
			v[j] = float64((len(t)+j)%7) + 1
		}
		out[i] = v
	}
	return out, nil
}
