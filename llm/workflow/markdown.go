package workflow

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"revise/config"
	"revise/llm"
	"revise/logger"
)

// MarkdownInput is a batch of note images plus free-form instructions.
type MarkdownInput struct {
	UserInstructions string
	ImagesB64        []string
}

// MarkdownWorkflow turns note images into Cornell style markdown.
type MarkdownWorkflow struct {
	model model.BaseChatModel
	tmpl  *template
	log   *logger.Logger
}

func NewMarkdownWorkflow(m model.BaseChatModel, p config.Prompt, log *logger.Logger) *MarkdownWorkflow {
	return &MarkdownWorkflow{model: m, tmpl: newTemplate(p), log: log.With("workflow", "markdown")}
}

// Run sends the rendered prompt with one image part per data URI, in order,
// after the text part.
func (w *MarkdownWorkflow) Run(ctx context.Context, in MarkdownInput) (string, error) {
	if len(in.ImagesB64) == 0 {
		return "", llm.Missing("images_b64")
	}
	msgs, err := w.tmpl.messages(ctx, map[string]any{"user_instructions": in.UserInstructions})
	if err != nil {
		return "", err
	}
	human := msgs[len(msgs)-1]
	parts := make([]schema.ChatMessagePart, 0, len(in.ImagesB64)+1)
	parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: human.Content})
	for _, uri := range in.ImagesB64 {
		parts = append(parts, schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: uri},
		})
	}
	human.Content = ""
	human.MultiContent = parts

	md, err := generate(ctx, w.model, w.log, "markdown", msgs)
	if err != nil {
		return "", err
	}
	w.log.Info("markdown generated", "images", len(in.ImagesB64), "chars", len(md))
	return md, nil
}

// RunMap accepts {"user_instructions", "images_b64"}.
func (w *MarkdownWorkflow) RunMap(ctx context.Context, in map[string]any) (string, error) {
	images, err := stringSlice(in, "images_b64")
	if err != nil {
		return "", err
	}
	instructions, _ := in["user_instructions"].(string)
	return w.Run(ctx, MarkdownInput{UserInstructions: instructions, ImagesB64: images})
}
