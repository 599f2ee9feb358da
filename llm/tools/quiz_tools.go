package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"revise/llm"
	"revise/llm/workflow"
	"revise/logger"
)

// NotesSource exports a page as markdown.
type NotesSource interface {
	FetchPageMarkdown(ctx context.Context, pageID string) (string, error)
}

// QuizToolset generates and grades quizzes over a page's notes.
type QuizToolset struct {
	notes    NotesSource
	generate workflow.Workflow[workflow.QuizGenerationInput, llm.QuizQuestions]
	evaluate workflow.Workflow[workflow.QuizEvaluationInput, string]
	log      *logger.Logger
}

func NewQuizToolset(
	notes NotesSource,
	gen workflow.Workflow[workflow.QuizGenerationInput, llm.QuizQuestions],
	eval workflow.Workflow[workflow.QuizEvaluationInput, string],
	log *logger.Logger,
) *QuizToolset {
	return &QuizToolset{notes: notes, generate: gen, evaluate: eval, log: log.With("toolset", "quiz")}
}

type GenerateQuizParams struct {
	PageID     string `json:"page_id" jsonschema:"description=Id of the Notion page holding the notes"`
	NQuestions int    `json:"n_questions,omitempty" jsonschema:"description=Number of questions to write (default 10)"`
}

type EvaluateQuizParams struct {
	PageID    string   `json:"page_id" jsonschema:"description=Id of the Notion page holding the notes"`
	Questions []string `json:"questions" jsonschema:"description=Quiz questions in order"`
	Answers   []string `json:"answers" jsonschema:"description=The student's answers in the same order as the questions"`
	NotionURL string   `json:"notion_url,omitempty" jsonschema:"description=Url of the page, quoted in the report"`
}

// GenerateQuiz writes questions from a page's notes.
func (t *QuizToolset) GenerateQuiz(ctx context.Context, in GenerateQuizParams) (llm.QuizQuestions, error) {
	t.log.Info("TOOL_USAGE: generating quiz from notes", "page_id", in.PageID)
	if in.PageID == "" {
		return llm.QuizQuestions{}, llm.Missing("page_id")
	}
	n := in.NQuestions
	if n <= 0 {
		n = llm.DefaultQuestionCount
	}
	md, err := t.notes.FetchPageMarkdown(ctx, in.PageID)
	if err != nil {
		return llm.QuizQuestions{}, err
	}
	return t.generate.Run(ctx, workflow.QuizGenerationInput{NotesMD: md, NQuestions: n})
}

// EvaluateQuiz grades answers against the notes. Questions and answers are
// paired by index and the shorter list wins.
func (t *QuizToolset) EvaluateQuiz(ctx context.Context, in EvaluateQuizParams) (string, error) {
	t.log.Info("TOOL_USAGE: evaluating quiz answers", "page_id", in.PageID)
	if in.PageID == "" {
		return "", llm.Missing("page_id")
	}
	md, err := t.notes.FetchPageMarkdown(ctx, in.PageID)
	if err != nil {
		return "", err
	}
	return t.evaluate.Run(ctx, workflow.QuizEvaluationInput{
		NotesMD:   md,
		QnA:       PairQnA(in.Questions, in.Answers),
		NotionURL: in.NotionURL,
	})
}

// PairQnA zips questions with answers, truncating to the shorter list.
func PairQnA(questions, answers []string) []llm.QnA {
	n := min(len(questions), len(answers))
	out := make([]llm.QnA, n)
	for i := range n {
		out[i] = llm.QnA{Question: questions[i], Answer: answers[i]}
	}
	return out
}

func (t *QuizToolset) Tools() ([]tool.BaseTool, error) {
	gen, err := utils.InferTool("generate_quiz_from_notes",
		"Generate active recall questions from a Notion page. Returns {questions:[{id,text,refs}]}.",
		t.GenerateQuiz)
	if err != nil {
		return nil, fmt.Errorf("build quiz tool: %w", err)
	}
	eval, err := utils.InferTool("evaluate_quiz",
		"Grade the student's answers to quiz questions against the notes of a Notion page. Returns a markdown report.",
		t.EvaluateQuiz)
	if err != nil {
		return nil, fmt.Errorf("build quiz tool: %w", err)
	}
	return []tool.BaseTool{gen, eval}, nil
}
