// Package app builds the dependency graph once at start-up.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/redis/go-redis/v9"

	"revise/config"
	"revise/llm"
	"revise/llm/agent"
	"revise/llm/pipeline"
	"revise/llm/providers"
	"revise/llm/tools"
	"revise/llm/vector"
	"revise/llm/workflow"
	"revise/logger"
	"revise/notion"
	"revise/pubsub"
	"revise/session"
	"revise/storage"
)

// App is every long-lived collaborator, wired from Settings.
type App struct {
	Settings *config.Settings
	Prompts  *config.Prompts
	Log      *logger.Logger

	Notion     *notion.Publisher
	Ingestion  *pipeline.IngestionPipeline
	Revision   *Revision
	Runtime    *agent.Runtime
	Sessions   session.Store
	Vectors    vector.VectorStore
	Progress   *pubsub.Broker[pipeline.Progress]
	HTTPClient *http.Client

	closers []func() error
}

// New builds the graph. Optional collaborators (archive, vector index,
// Redis cache) are skipped when their settings are empty.
func New(ctx context.Context, s *config.Settings, log *logger.Logger) (*App, error) {
	a := &App{Settings: s, Log: log, Progress: pubsub.NewBroker[pipeline.Progress]()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	prompts, err := config.LoadPrompts(s.PromptsFile)
	if err != nil {
		return nil, err
	}
	a.Prompts = prompts
	a.HTTPClient = providers.NewHTTPClient(providers.RetryConfigFrom(s), log)

	general, err := providers.CreateChatModel(ctx, s, providers.General, a.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("create general chat model: %w", err)
	}
	premium, err := providers.CreateChatModel(ctx, s, providers.Premium, a.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("create premium chat model: %w", err)
	}

	if err := a.buildNotion(s); err != nil {
		return nil, err
	}

	var archiver pipeline.FileArchiver
	if s.ArchiveEnabled() {
		gcs, err := storage.NewGCSStore(ctx, s.ObjectStoreBucket)
		if err != nil {
			return nil, fmt.Errorf("create object store: %w", err)
		}
		a.closers = append(a.closers, gcs.Close)
		archiver = storage.NewArchiver(gcs, log)
	}

	var rdb redis.UniversalClient
	if s.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
			Protocol: 2,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", s.RedisAddr, err)
		}
		a.closers = append(a.closers, client.Close)
		rdb = client
		a.Sessions = session.NewRedisStore(rdb, "revise", s.SessionTTL)
	} else {
		a.Sessions = session.NewMemoryStore(s.SessionTTL)
	}

	if s.EmbeddingEnabled() {
		if err := a.buildVectors(ctx, s); err != nil {
			return nil, err
		}
	}

	markdownWf := workflow.NewMarkdownWorkflow(premium, prompts.NotesIngestion, log)
	quizGen := workflow.NewQuizGenerationWorkflow(premium, prompts.QuizGeneration, log)
	quizEval := workflow.NewQuizEvaluationWorkflow(premium, prompts.QuizEvaluation, log)

	a.Ingestion, err = pipeline.NewIngestionPipeline(ctx, pipeline.IngestionDeps{
		Markdown:  markdownWf,
		Publisher: a.Notion,
		Archiver:  archiver,
		Vectors:   a.Vectors,
		Chunking:  vector.DefaultChunkConfig(),
		Log:       log,
	})
	if err != nil {
		return nil, err
	}
	quiz, err := pipeline.NewQuizPipeline(ctx, a.Notion, quizGen, log)
	if err != nil {
		return nil, err
	}
	a.Revision = NewRevision(a.Notion, quiz, quizEval, a.Notion, log)

	toolset, err := a.buildTools(quizGen, quizEval)
	if err != nil {
		return nil, err
	}
	if err := a.buildRuntime(ctx, general, toolset); err != nil {
		return nil, err
	}

	ok = true
	log.Info("app ready",
		"provider", s.ModelProvider,
		"converter", s.ConverterMode,
		"archive", s.ArchiveEnabled(),
		"vectors", s.VectorBackend,
		"redis", rdb != nil,
		"tools", len(toolset))
	return a, nil
}

func (a *App) buildNotion(s *config.Settings) error {
	client, err := notion.NewClient(notion.ClientConfig{
		BaseURL: s.NotionBaseURL,
		Token:   s.NotionToken,
		Version: s.NotionVersion,
	}, a.HTTPClient, a.Log)
	if err != nil {
		return err
	}
	var converter notion.BlockConverter = notion.NewGoldmarkConverter()
	if s.ConverterMode == "martian" {
		converter, err = notion.NewSubprocessConverter(s.MartianRuntime, s.MartianCLIPath, s.ConverterTimeout)
		if err != nil {
			return err
		}
	}
	a.Notion = notion.NewPublisher(client, converter, s.NotionKnowledgeDatabaseID, a.Log)
	return nil
}

func (a *App) buildVectors(ctx context.Context, s *config.Settings) error {
	embedder, err := providers.CreateEmbeddingModel(ctx, s, a.HTTPClient)
	if err != nil {
		return fmt.Errorf("create embedding model: %w", err)
	}
	svc := vector.NewEmbeddingService(embedder, s.VectorDim)
	if err := vector.TokenEncodingError(); err != nil {
		a.Log.Warn("tokenizer unavailable, chunking with approximate token counts", "encoding", "cl100k_base", "error", err)
	}

	switch s.VectorBackend {
	case "redis":
		store, err := vector.NewRedisStore(ctx, svc, vector.RedisConfig{
			Addr:      s.RedisAddr,
			Password:  s.RedisPassword,
			DB:        s.RedisDB,
			VectorDim: s.VectorDim,
		})
		if err != nil {
			return fmt.Errorf("create redis vector store: %w", err)
		}
		a.Vectors = store
	default:
		store, err := vector.NewFileStore(s.VectorPersistDir, svc)
		if err != nil {
			return fmt.Errorf("create file vector store: %w", err)
		}
		a.Vectors = store
	}
	a.closers = append(a.closers, a.Vectors.Close)
	return nil
}

func (a *App) buildTools(
	gen workflow.Workflow[workflow.QuizGenerationInput, llm.QuizQuestions],
	eval workflow.Workflow[workflow.QuizEvaluationInput, string],
) ([]tool.BaseTool, error) {
	sets := []interface {
		Tools() ([]tool.BaseTool, error)
	}{
		tools.NewNotionToolset(a.Notion, a.Settings.NotionDSADatabaseID, a.Log),
		tools.NewQuizToolset(a.Notion, gen, eval, a.Log),
	}
	if a.Vectors != nil {
		sets = append(sets, tools.NewKnowledgeToolset(a.Vectors, a.Log))
	}
	var out []tool.BaseTool
	for _, set := range sets {
		ts, err := set.Tools()
		if err != nil {
			return nil, err
		}
		out = append(out, ts...)
	}
	return out, nil
}

func (a *App) buildRuntime(ctx context.Context, m model.ToolCallingChatModel, toolset []tool.BaseTool) error {
	orch, err := agent.NewOrchestrator(ctx, &agent.OrchestratorConfig{
		Model:        m,
		Tools:        toolset,
		SystemPrompt: a.Prompts.Chatbot.SystemPrompt,
		Log:          a.Log,
	})
	if err != nil {
		return err
	}
	a.Runtime = agent.NewRuntime(ctx, orch, nil, a.Log)
	a.closers = append(a.closers, func() error {
		a.Runtime.Close()
		return nil
	})
	return nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	a.Progress.Shutdown()
}
