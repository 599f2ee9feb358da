package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"revise/llm"
	"revise/llm/vector"
	"revise/llm/workflow"
	"revise/logger"
	"revise/storage"
)

// Stage labels, in order.
const (
	LabelValidate = "validating..."
	LabelArchive  = "archiving original files..."
	LabelEncode   = "converting images to base64..."
	LabelMarkdown = "building markdown..."
	LabelPublish  = "creating notion page..."
	LabelChunk    = "preparing markdown chunks..."
	LabelEmbed    = "embedding and indexing chunks..."
	LabelDone     = "done"
)

const defaultImageType = "image/jpeg"

// PagePublisher creates a page from markdown.
type PagePublisher interface {
	Publish(ctx context.Context, title, markdown, resourceTag string) (llm.PageRef, error)
}

// FileArchiver stores the original uploads.
type FileArchiver interface {
	Archive(ctx context.Context, in llm.IngestionInput) ([]storage.Archived, error)
}

// IngestionDeps are the collaborators of the ingestion stages. Archiver and
// Vectors are optional; their stages pass through when nil.
type IngestionDeps struct {
	Markdown  workflow.Workflow[workflow.MarkdownInput, string]
	Publisher PagePublisher
	Archiver  FileArchiver
	Vectors   vector.VectorStore
	Chunking  vector.ChunkConfig
	Log       *logger.Logger
	Now       func() time.Time
}

// IngestionPipeline runs validate, archive, encode, markdown, publish, chunk
// and embed as one eino chain.
type IngestionPipeline struct {
	deps     IngestionDeps
	log      *logger.Logger
	runnable compose.Runnable[llm.IngestionInput, *llm.IngestionReport]
}

// run collects what the chain's typed payloads do not carry.
type run struct {
	archived []string
	err      error
}

type runKey struct{}

func currentRun(ctx context.Context) *run {
	if r, ok := ctx.Value(runKey{}).(*run); ok {
		return r
	}
	return &run{}
}

// stage records a failing stage's error so Run returns it unwrapped.
func stage[I, O any](fn func(context.Context, I) (O, error)) func(context.Context, I) (O, error) {
	return func(ctx context.Context, in I) (O, error) {
		out, err := fn(ctx, in)
		if err != nil {
			currentRun(ctx).err = err
		}
		return out, err
	}
}

func NewIngestionPipeline(ctx context.Context, deps IngestionDeps) (*IngestionPipeline, error) {
	if deps.Markdown == nil || deps.Publisher == nil {
		return nil, fmt.Errorf("ingestion pipeline needs a markdown workflow and a publisher")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	p := &IngestionPipeline{deps: deps, log: deps.Log.With("pipeline", "ingestion")}

	chain := compose.NewChain[llm.IngestionInput, *llm.IngestionReport]()
	chain.
		AppendLambda(compose.InvokableLambda(stage(p.validate)), compose.WithNodeName("validate")).
		AppendLambda(compose.InvokableLambda(stage(p.archive)), compose.WithNodeName("archive")).
		AppendLambda(compose.InvokableLambda(stage(p.encode)), compose.WithNodeName("encode")).
		AppendLambda(compose.InvokableLambda(stage(p.generateMarkdown)), compose.WithNodeName("generate_markdown")).
		AppendLambda(compose.InvokableLambda(stage(p.publish)), compose.WithNodeName("publish")).
		AppendLambda(compose.InvokableLambda(stage(p.chunk)), compose.WithNodeName("chunk")).
		AppendLambda(compose.InvokableLambda(stage(p.embed)), compose.WithNodeName("embed"))

	r, err := chain.Compile(ctx, compose.WithGraphName("ingestion"))
	if err != nil {
		return nil, fmt.Errorf("compile ingestion chain: %w", err)
	}
	p.runnable = r
	return p, nil
}

// Run ingests one chapter. reporter may be nil.
func (p *IngestionPipeline) Run(ctx context.Context, in llm.IngestionInput, reporter ProgressReporter) (*llm.IngestionReport, error) {
	rec := &run{}
	ctx = context.WithValue(WithReporter(ctx, reporter), runKey{}, rec)

	start := time.Now()
	report, err := p.runnable.Invoke(ctx, in)
	if rec.err != nil {
		err = rec.err
	}
	if err != nil {
		p.log.Error("ingestion failed", "chapter", in.ChapterName, "resource_tag", in.ResourceTag, "error", err)
		return nil, err
	}
	reportProgress(ctx, IngestionSteps, LabelDone)
	p.log.Info("ingestion finished",
		"chapter", in.ChapterName,
		"page_id", report.Page.ID,
		"chunks", report.ChunkCount,
		"archived", len(report.ArchivedKeys),
		"elapsed", time.Since(start).String())
	return report, nil
}

func (p *IngestionPipeline) validate(ctx context.Context, in llm.IngestionInput) (llm.IngestionInput, error) {
	reportProgress(ctx, 0, LabelValidate)
	switch {
	case strings.TrimSpace(in.ChapterName) == "":
		return in, llm.Missing("chapter_name")
	case strings.TrimSpace(in.ResourceTag) == "":
		return in, llm.Missing("resource_tag")
	case len(in.Files) == 0:
		return in, &llm.ValidationError{Field: "files", Reason: "upload at least one file"}
	}
	p.log.Info("ingestion started", "chapter", in.ChapterName, "resource_tag", in.ResourceTag, "files", len(in.Files))
	return in, nil
}

func (p *IngestionPipeline) archive(ctx context.Context, in llm.IngestionInput) (llm.IngestionInput, error) {
	reportProgress(ctx, 1, LabelArchive)
	if p.deps.Archiver == nil {
		p.log.Debug("archive disabled, skipping")
		return in, nil
	}
	archived, err := p.deps.Archiver.Archive(ctx, in)
	if err != nil {
		return in, err
	}
	rec := currentRun(ctx)
	for _, a := range archived {
		rec.archived = append(rec.archived, a.Key)
	}
	return in, nil
}

func (p *IngestionPipeline) encode(ctx context.Context, in llm.IngestionInput) (llm.EncodedInput, error) {
	reportProgress(ctx, 2, LabelEncode)
	images := make([]string, len(in.Files))
	for i, f := range in.Files {
		uri, err := EncodeDataURI(f)
		if err != nil {
			return llm.EncodedInput{}, err
		}
		images[i] = uri
	}
	return llm.EncodedInput{IngestionInput: in, ImagesB64: images}, nil
}

// EncodeDataURI renders a file as data:<mime>;base64,<payload>.
func EncodeDataURI(f llm.File) (string, error) {
	data, err := f.Bytes()
	if err != nil {
		return "", &llm.EncodingError{File: f.Name, Err: err}
	}
	mime := f.MIMEType
	if mime == "" {
		mime = storage.DetectContentType(f.Name, defaultImageType)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (p *IngestionPipeline) generateMarkdown(ctx context.Context, in llm.EncodedInput) (llm.MarkdownResult, error) {
	reportProgress(ctx, 3, LabelMarkdown)
	md, err := p.deps.Markdown.Run(ctx, workflow.MarkdownInput{
		UserInstructions: in.AdditionalContext,
		ImagesB64:        in.ImagesB64,
	})
	if err != nil {
		return llm.MarkdownResult{}, err
	}
	return llm.MarkdownResult{ChapterName: in.ChapterName, ResourceTag: in.ResourceTag, Markdown: md}, nil
}

func (p *IngestionPipeline) publish(ctx context.Context, in llm.MarkdownResult) (llm.PublishedResult, error) {
	reportProgress(ctx, 4, LabelPublish)
	if strings.TrimSpace(in.Markdown) == "" {
		return llm.PublishedResult{}, &llm.ValidationError{Field: "markdown", Reason: "model returned no content"}
	}
	ref, err := p.deps.Publisher.Publish(ctx, in.ChapterName, in.Markdown, in.ResourceTag)
	if err != nil {
		return llm.PublishedResult{}, err
	}
	return llm.PublishedResult{MarkdownResult: in, Page: ref}, nil
}

func (p *IngestionPipeline) chunk(ctx context.Context, in llm.PublishedResult) (llm.EmbeddingPayload, error) {
	reportProgress(ctx, 5, LabelChunk)
	if p.deps.Vectors == nil {
		p.log.Debug("vector index disabled, skipping chunking")
		return llm.EmbeddingPayload{PublishedResult: in}, nil
	}
	chunks := vector.BuildChunks(in, p.deps.Chunking, p.deps.Now())
	p.log.Info("markdown chunked", "page_id", in.Page.ID, "chunks", len(chunks))
	return llm.EmbeddingPayload{PublishedResult: in, Chunks: chunks}, nil
}

func (p *IngestionPipeline) embed(ctx context.Context, in llm.EmbeddingPayload) (*llm.IngestionReport, error) {
	reportProgress(ctx, 6, LabelEmbed)
	report := &llm.IngestionReport{PublishedResult: in.PublishedResult, ArchivedKeys: currentRun(ctx).archived}
	if p.deps.Vectors == nil || len(in.Chunks) == 0 {
		return report, nil
	}
	collection := vector.CollectionName(in.ResourceTag)
	if err := p.deps.Vectors.Upsert(ctx, collection, in.Chunks); err != nil {
		return nil, err
	}
	report.ChunkCount = len(in.Chunks)
	return report, nil
}
