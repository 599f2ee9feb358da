package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed prompts.toml
var defaultPrompts []byte

// Prompt is a system prompt plus a human template with {placeholders}.
type Prompt struct {
	SystemPrompt string `toml:"system_prompt"`
	HumanPrompt  string `toml:"human_prompt"`
}

// Prompts holds one prompt pair per workflow.
type Prompts struct {
	NotesIngestion Prompt `toml:"notes_ingestion"`
	QuizGeneration Prompt `toml:"quiz_generation"`
	QuizEvaluation Prompt `toml:"quiz_evaluation"`
	Chatbot        Prompt `toml:"chatbot"`
}

// LoadPrompts decodes path, or the embedded defaults when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	data := defaultPrompts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		data = b
	}
	return ParsePrompts(data)
}

// ParsePrompts decodes a TOML document and checks every section is present.
func ParsePrompts(data []byte) (*Prompts, error) {
	var p Prompts
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	sections := map[string]Prompt{
		"notes_ingestion": p.NotesIngestion,
		"quiz_generation": p.QuizGeneration,
		"quiz_evaluation": p.QuizEvaluation,
	}
	for name, section := range sections {
		if section.SystemPrompt == "" || section.HumanPrompt == "" {
			return nil, fmt.Errorf("prompts: section [%s] needs system_prompt and human_prompt", name)
		}
	}
	if p.Chatbot.SystemPrompt == "" {
		return nil, fmt.Errorf("prompts: section [chatbot] needs system_prompt")
	}
	return &p, nil
}
