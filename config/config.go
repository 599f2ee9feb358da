package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings is the full runtime configuration, read once at start.
type Settings struct {
	// Document store
	NotionToken               string
	NotionKnowledgeDatabaseID string
	NotionDSADatabaseID       string
	NotionBaseURL             string
	NotionVersion             string

	// Models. The general tier drives the chat agent, the premium tier the
	// markdown and quiz workflows.
	ModelProvider    string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	ModelGeneral     string
	ModelPremium     string
	GeminiAPIKey     string
	ModelTemperature float32
	LLMTimeout       time.Duration
	LLMMaxRetries    int

	// Embeddings / vector index. An empty VectorBackend disables chunk+embed.
	EmbedAPIKey      string
	EmbedBaseURL     string
	EmbedModel       string
	VectorBackend    string
	VectorPersistDir string
	VectorDim        int

	// Archive. An empty bucket disables the archive stage.
	ObjectStoreBucket string

	// Cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	// Markdown to blocks
	ConverterMode    string
	MartianRuntime   string
	MartianCLIPath   string
	ConverterTimeout time.Duration

	PromptsFile string
	LogMode     string
	LogFile     string

	CozeloopAPIToken    string
	CozeloopWorkspaceID string
}

// Load reads .env (when present) and the process environment.
func Load() (*Settings, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds Settings from the current environment without touching .env.
func FromEnv() (*Settings, error) {
	s := &Settings{
		NotionToken:               os.Getenv("NOTION_TOKEN"),
		NotionKnowledgeDatabaseID: os.Getenv("NOTION_KNOWLEDGE_DATABASE_ID"),
		NotionDSADatabaseID:       os.Getenv("NOTION_DSA_DATABASE_ID"),
		NotionBaseURL:             getEnvString("NOTION_BASE_URL", "https://api.notion.com"),
		NotionVersion:             getEnvString("NOTION_VERSION", "2022-06-28"),

		ModelProvider:    strings.ToLower(getEnvString("MODEL_PROVIDER", "openai")),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		ModelGeneral:     getEnvString("OPENAI_MODEL_GENERAL", "gpt-4o-mini"),
		ModelPremium:     getEnvString("OPENAI_MODEL_PREMIUM", "gpt-4o"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		ModelTemperature: float32(getEnvFloat("MODEL_TEMPERATURE", 1)),
		LLMTimeout:       time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 600)) * time.Second,
		LLMMaxRetries:    getEnvInt("LLM_MAX_RETRIES", 5),

		EmbedAPIKey:      getEnvString("EMBED_API_KEY", os.Getenv("OPENAI_API_KEY")),
		EmbedBaseURL:     getEnvString("EMBED_BASE_URL", os.Getenv("OPENAI_BASE_URL")),
		EmbedModel:       getEnvString("EMBED_MODEL", "text-embedding-3-small"),
		VectorBackend:    strings.ToLower(os.Getenv("VECTOR_BACKEND")),
		VectorPersistDir: getEnvString("VECTOR_PERSIST_DIR", getEnvString("CHROMA_PERSIST_DIR", "./data/vectors")),
		VectorDim:        getEnvInt("VECTOR_DIM", 1536),

		ObjectStoreBucket: os.Getenv("OBJECT_STORE_BUCKET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_SECONDS", 3600)) * time.Second,

		ConverterMode:    strings.ToLower(getEnvString("CONVERTER_MODE", "goldmark")),
		MartianRuntime:   getEnvString("MARTIAN_RUNTIME", "node"),
		MartianCLIPath:   getEnvString("MARTIAN_CLI_PATH", "scripts/martian_cli.mjs"),
		ConverterTimeout: time.Duration(getEnvInt("CONVERTER_TIMEOUT_SECONDS", 120)) * time.Second,

		PromptsFile: os.Getenv("PROMPTS_FILE"),
		LogMode:     getEnvString("LOG_MODE", "development"),
		LogFile:     getEnvString("LOG_FILE", "revise.log"),

		CozeloopAPIToken:    os.Getenv("COZELOOP_API_TOKEN"),
		CozeloopWorkspaceID: os.Getenv("COZELOOP_WORKSPACE_ID"),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks option values, not presence of credentials. Missing
// credentials surface when the dependent client is built.
func (s *Settings) Validate() error {
	switch s.ModelProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("MODEL_PROVIDER must be openai or gemini, got %q", s.ModelProvider)
	}
	switch s.VectorBackend {
	case "", "file", "redis":
	default:
		return fmt.Errorf("VECTOR_BACKEND must be empty, file or redis, got %q", s.VectorBackend)
	}
	switch s.ConverterMode {
	case "goldmark", "martian":
	default:
		return fmt.Errorf("CONVERTER_MODE must be goldmark or martian, got %q", s.ConverterMode)
	}
	if s.LLMMaxRetries < 1 {
		return fmt.Errorf("LLM_MAX_RETRIES must be at least 1")
	}
	return nil
}

// EmbeddingEnabled reports whether the chunk and embed stages should run.
func (s *Settings) EmbeddingEnabled() bool {
	return s.VectorBackend != ""
}

// ArchiveEnabled reports whether original uploads are archived.
func (s *Settings) ArchiveEnabled() bool {
	return s.ObjectStoreBucket != ""
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultVal
}
