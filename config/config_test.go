package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"NOTION_BASE_URL", "NOTION_VERSION", "MODEL_PROVIDER", "MODEL_TEMPERATURE",
		"LLM_TIMEOUT_SECONDS", "LLM_MAX_RETRIES", "VECTOR_BACKEND", "CONVERTER_MODE",
		"OBJECT_STORE_BUCKET", "CONVERTER_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if s.NotionVersion != "2022-06-28" {
		t.Errorf("NotionVersion = %q", s.NotionVersion)
	}
	if s.NotionBaseURL != "https://api.notion.com" {
		t.Errorf("NotionBaseURL = %q", s.NotionBaseURL)
	}
	if s.ModelTemperature != 1 {
		t.Errorf("ModelTemperature = %v, want 1", s.ModelTemperature)
	}
	if s.LLMTimeout != 600*time.Second || s.LLMMaxRetries != 5 {
		t.Errorf("LLM timeout/retries = %v/%d", s.LLMTimeout, s.LLMMaxRetries)
	}
	if s.ConverterTimeout != 120*time.Second {
		t.Errorf("ConverterTimeout = %v", s.ConverterTimeout)
	}
	if s.EmbeddingEnabled() || s.ArchiveEnabled() {
		t.Errorf("optional stages should be disabled by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODEL_TEMPERATURE", "0.2")
	t.Setenv("VECTOR_BACKEND", "file")
	t.Setenv("OBJECT_STORE_BUCKET", "notes-archive")
	t.Setenv("MODEL_PROVIDER", "Gemini")

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if s.ModelTemperature < 0.19 || s.ModelTemperature > 0.21 {
		t.Errorf("ModelTemperature = %v", s.ModelTemperature)
	}
	if !s.EmbeddingEnabled() || !s.ArchiveEnabled() {
		t.Errorf("optional stages should be enabled")
	}
	if s.ModelProvider != "gemini" {
		t.Errorf("ModelProvider = %q", s.ModelProvider)
	}
}

func TestFromEnvRejectsUnknownOptions(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "chroma")
	if _, err := FromEnv(); err == nil || !strings.Contains(err.Error(), "VECTOR_BACKEND") {
		t.Fatalf("expected VECTOR_BACKEND error, got %v", err)
	}
}

func TestDefaultPrompts(t *testing.T) {
	p, err := LoadPrompts("")
	if err != nil {
		t.Fatalf("LoadPrompts() error = %v", err)
	}
	checks := map[string][]string{
		p.NotesIngestion.HumanPrompt: {"{user_instructions}"},
		p.QuizGeneration.HumanPrompt: {"{notes_md}", "{n_questions}"},
		p.QuizEvaluation.HumanPrompt: {"{notes_md}", "{qna}", "{notion_url}"},
	}
	for tmpl, placeholders := range checks {
		for _, ph := range placeholders {
			if !strings.Contains(tmpl, ph) {
				t.Errorf("template missing %s:\n%s", ph, tmpl)
			}
		}
	}
	if !strings.Contains(p.NotesIngestion.SystemPrompt, "## Cues & Key Terms") {
		t.Errorf("ingestion system prompt should name the section headings")
	}
}

func TestParsePromptsMissingSection(t *testing.T) {
	_, err := ParsePrompts([]byte(`[chatbot]
system_prompt = "hi"
`))
	if err == nil {
		t.Fatal("expected error for missing sections")
	}
}
