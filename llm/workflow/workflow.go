// Package workflow holds the single model call workflows used by the
// pipelines and the agent tools.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"revise/config"
	"revise/llm"
	"revise/logger"
)

// Workflow is one prompt plus one synchronous model call.
type Workflow[I, O any] interface {
	Run(ctx context.Context, in I) (O, error)
}

// template renders a prompt pair. The system prompt is sent verbatim since
// it may contain literal braces; only the human prompt is formatted.
type template struct {
	system string
	human  *prompt.DefaultChatTemplate
}

func newTemplate(p config.Prompt) *template {
	return &template{
		system: strings.TrimSpace(p.SystemPrompt),
		human:  prompt.FromMessages(schema.FString, schema.UserMessage(strings.TrimSpace(p.HumanPrompt))),
	}
}

func (t *template) messages(ctx context.Context, vars map[string]any) ([]*schema.Message, error) {
	human, err := t.human.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return append([]*schema.Message{schema.SystemMessage(t.system)}, human...), nil
}

// generate sends msgs and returns the trimmed reply text.
func generate(ctx context.Context, m model.BaseChatModel, log *logger.Logger, name string, msgs []*schema.Message) (string, error) {
	log.Debug("workflow call", "workflow", name, "messages", len(msgs))
	resp, err := m.Generate(ctx, msgs)
	if err != nil {
		return "", llm.External("llm", fmt.Errorf("%s: %w", name, err))
	}
	if resp == nil {
		return "", llm.External("llm", fmt.Errorf("%s: empty response", name))
	}
	return strings.TrimSpace(resp.Content), nil
}

func stringField(in map[string]any, field string) (string, error) {
	v, ok := in[field]
	if !ok || v == nil {
		return "", llm.Missing(field)
	}
	s, ok := v.(string)
	if !ok {
		return "", &llm.ValidationError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

func requiredString(in map[string]any, field string) (string, error) {
	s, err := stringField(in, field)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", llm.Missing(field)
	}
	return s, nil
}

func stringSlice(in map[string]any, field string) ([]string, error) {
	switch v := in[field].(type) {
	case nil:
		return nil, llm.Missing(field)
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &llm.ValidationError{Field: field, Reason: fmt.Sprintf("item %d is %T", i, item)}
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, &llm.ValidationError{Field: field, Reason: fmt.Sprintf("expected list, got %T", v)}
	}
}

func intField(in map[string]any, field string) (int, error) {
	switch v := in[field].(type) {
	case nil:
		return 0, llm.Missing(field)
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, &llm.ValidationError{Field: field, Reason: fmt.Sprintf("expected integer, got %T", v)}
	}
}
