package providers

import (
	"context"
	"fmt"
	"net/http"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"revise/config"
)

// Tier selects the model used for a workflow. General drives the chat agent,
// Premium the markdown and quiz workflows.
type Tier int

const (
	General Tier = iota
	Premium
)

func (t Tier) String() string {
	if t == Premium {
		return "premium"
	}
	return "general"
}

// ChatModelConfig defines the configuration for creating a chat model.
type ChatModelConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client
}

// NewChatModel creates a chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required in config")
	}

	switch cfg.Provider {
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     cfg.APIKey,
			HTTPClient: cfg.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		temp := cfg.Temperature
		return geminiModel.NewChatModel(ctx, &geminiModel.Config{
			Client:      client,
			Model:       cfg.Model,
			Temperature: &temp,
		})
	default:
		temp := cfg.Temperature
		return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: &temp,
			HTTPClient:  cfg.HTTPClient,
		})
	}
}

// CreateChatModel builds the model for tier from settings. Both tiers share
// one retrying HTTP client.
func CreateChatModel(ctx context.Context, s *config.Settings, tier Tier, httpClient *http.Client) (model.ToolCallingChatModel, error) {
	name := s.ModelGeneral
	if tier == Premium {
		name = s.ModelPremium
	}
	apiKey := s.OpenAIAPIKey
	if s.ModelProvider == "gemini" {
		apiKey = s.GeminiAPIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s model: API key environment variable is required", tier)
	}
	return NewChatModel(ctx, &ChatModelConfig{
		Provider:    s.ModelProvider,
		APIKey:      apiKey,
		BaseURL:     s.OpenAIBaseURL,
		Model:       name,
		Temperature: s.ModelTemperature,
		HTTPClient:  httpClient,
	})
}

// EmbeddingConfig defines the configuration for creating an embedding model.
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewEmbeddingModel creates an OpenAI-compatible embedding model from specific configuration.
func NewEmbeddingModel(ctx context.Context, cfg *EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      modelName,
		HTTPClient: cfg.HTTPClient,
	})
}

// CreateEmbeddingModel builds the embedder from settings.
func CreateEmbeddingModel(ctx context.Context, s *config.Settings, httpClient *http.Client) (einoEmbedding.Embedder, error) {
	return NewEmbeddingModel(ctx, &EmbeddingConfig{
		APIKey:     s.EmbedAPIKey,
		BaseURL:    s.EmbedBaseURL,
		Model:      s.EmbedModel,
		HTTPClient: httpClient,
	})
}

// RetryConfigFrom maps settings onto the transport retry policy.
func RetryConfigFrom(s *config.Settings) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.Timeout = s.LLMTimeout
	cfg.MaxTries = uint(s.LLMMaxRetries)
	return cfg
}
