package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"revise/llm"
	"revise/llm/workflow"
	"revise/logger"
)

// NotesSource exports a page as markdown.
type NotesSource interface {
	FetchPageMarkdown(ctx context.Context, pageID string) (string, error)
}

// QuizRequest selects the page to quiz on.
type QuizRequest struct {
	PageID     string
	URL        string
	NQuestions int
}

// QuizPipeline is the graph START -> fetch_notes -> generate_quiz -> END.
type QuizPipeline struct {
	notes    NotesSource
	generate workflow.Workflow[workflow.QuizGenerationInput, llm.QuizQuestions]
	log      *logger.Logger
	runnable compose.Runnable[*llm.QuizState, *llm.QuizState]
}

func NewQuizPipeline(ctx context.Context, notes NotesSource, gen workflow.Workflow[workflow.QuizGenerationInput, llm.QuizQuestions], log *logger.Logger) (*QuizPipeline, error) {
	if notes == nil || gen == nil {
		return nil, fmt.Errorf("quiz pipeline needs a notes source and a generation workflow")
	}
	if log == nil {
		log = logger.Nop()
	}
	q := &QuizPipeline{notes: notes, generate: gen, log: log.With("pipeline", "quiz")}

	g := compose.NewGraph[*llm.QuizState, *llm.QuizState]()
	if err := g.AddLambdaNode("fetch_notes", compose.InvokableLambda(stage(q.fetchNotes))); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("generate_quiz", compose.InvokableLambda(stage(q.generateQuiz))); err != nil {
		return nil, err
	}
	for _, e := range [][2]string{{compose.START, "fetch_notes"}, {"fetch_notes", "generate_quiz"}, {"generate_quiz", compose.END}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	r, err := g.Compile(ctx, compose.WithGraphName("quiz"))
	if err != nil {
		return nil, fmt.Errorf("compile quiz graph: %w", err)
	}
	q.runnable = r
	return q, nil
}

// Run fetches the page and generates questions. NQuestions <= 0 means
// llm.DefaultQuestionCount.
func (q *QuizPipeline) Run(ctx context.Context, req QuizRequest) (*llm.QuizState, error) {
	if strings.TrimSpace(req.PageID) == "" {
		return nil, llm.Missing("notion_page_id")
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, llm.Missing("notion_url")
	}
	n := req.NQuestions
	if n <= 0 {
		n = llm.DefaultQuestionCount
	}
	rec := &run{}
	ctx = context.WithValue(ctx, runKey{}, rec)

	state, err := q.runnable.Invoke(ctx, &llm.QuizState{NotionURL: req.URL, NotionPageID: req.PageID, NQuestions: n})
	if rec.err != nil {
		err = rec.err
	}
	if err != nil {
		q.log.Error("quiz generation failed", "page_id", req.PageID, "error", err)
		return nil, err
	}
	return state, nil
}

func (q *QuizPipeline) fetchNotes(ctx context.Context, s *llm.QuizState) (*llm.QuizState, error) {
	md, err := q.notes.FetchPageMarkdown(ctx, s.NotionPageID)
	if err != nil {
		return nil, err
	}
	s.NotesMD = md
	q.log.Debug("notes fetched", "page_id", s.NotionPageID, "chars", len(md))
	return s, nil
}

func (q *QuizPipeline) generateQuiz(ctx context.Context, s *llm.QuizState) (*llm.QuizState, error) {
	quiz, err := q.generate.Run(ctx, workflow.QuizGenerationInput{NotesMD: s.NotesMD, NQuestions: s.NQuestions})
	if err != nil {
		return nil, err
	}
	s.Questions = quiz.Questions
	q.log.Info("quiz ready", "page_id", s.NotionPageID, "questions", len(s.Questions))
	return s, nil
}
