package llm

import (
	"fmt"
	"io"
	"time"
)

// File is one uploaded note image. Data is read eagerly; Open is used when
// the caller streams from disk.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
	Open     func() (io.ReadCloser, error)
}

// Bytes returns the file content, reading it through Open when Data is empty.
func (f File) Bytes() ([]byte, error) {
	if f.Data != nil {
		return f.Data, nil
	}
	if f.Open == nil {
		return nil, fmt.Errorf("file %q has no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// IngestionInput is what the user submits for one chapter.
type IngestionInput struct {
	ChapterName       string
	ResourceTag       string
	Files             []File
	AdditionalContext string
}

// EncodedInput widens IngestionInput with one data URI per file, same order.
type EncodedInput struct {
	IngestionInput
	ImagesB64 []string
}

// MarkdownResult narrows the payload to the generated document.
type MarkdownResult struct {
	ChapterName string
	ResourceTag string
	Markdown    string
}

// PageRef identifies a published page.
type PageRef struct {
	ID  string `json:"page_id"`
	URL string `json:"url"`
}

// PublishedResult is set only after the document store accepted the page.
type PublishedResult struct {
	MarkdownResult
	Page PageRef
}

// ChunkMetadata travels with each chunk into the vector index.
type ChunkMetadata struct {
	ChunkIndex  int       `json:"chunk_index"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	DocID       string    `json:"doc_id"`
	ChunkID     string    `json:"chunk_id"`
	ResourceTag string    `json:"resource_tag"`
	ChapterName string    `json:"chapter_name"`
	PageID      string    `json:"notion_page_id"`
	PageURL     string    `json:"notion_url"`
	ContentHash string    `json:"content_hash"`
	Headings    []string  `json:"headings,omitempty"`
}

// EmbeddingChunk is one piece of a published document.
type EmbeddingChunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// EmbeddingPayload carries the chunks of one document towards the index.
type EmbeddingPayload struct {
	PublishedResult
	Chunks []EmbeddingChunk
}

// IngestionReport is the pipeline result handed back to callers.
type IngestionReport struct {
	PublishedResult
	ArchivedKeys []string
	ChunkCount   int
}

// Question is one generated quiz question.
type Question struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	Refs []string `json:"refs"`
}

// QuizQuestions is the structured output of quiz generation.
type QuizQuestions struct {
	Questions []Question `json:"questions"`
}

// QnA pairs a question with the user's answer.
type QnA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizState flows through the quiz graph.
type QuizState struct {
	NotionURL    string
	NotionPageID string
	NotesMD      string
	NQuestions   int
	Questions    []Question
}

// DefaultQuestionCount is used when a quiz is requested without a size.
const DefaultQuestionCount = 10

// SearchResult is a chunk returned from the vector index with its score.
type SearchResult struct {
	Chunk EmbeddingChunk
	Score float32
}
