package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"

	"revise/config"
	"revise/llm"
	"revise/logger"
)

// QuizGenerationInput asks for NQuestions questions over NotesMD.
type QuizGenerationInput struct {
	NotesMD    string
	NQuestions int
}

// QuizGenerationWorkflow writes active recall questions as structured output.
type QuizGenerationWorkflow struct {
	model model.BaseChatModel
	tmpl  *template
	log   *logger.Logger
}

func NewQuizGenerationWorkflow(m model.BaseChatModel, p config.Prompt, log *logger.Logger) *QuizGenerationWorkflow {
	return &QuizGenerationWorkflow{model: m, tmpl: newTemplate(p), log: log.With("workflow", "quiz_generation")}
}

func (w *QuizGenerationWorkflow) Run(ctx context.Context, in QuizGenerationInput) (llm.QuizQuestions, error) {
	if strings.TrimSpace(in.NotesMD) == "" {
		return llm.QuizQuestions{}, llm.Missing("notes_md")
	}
	if in.NQuestions <= 0 {
		return llm.QuizQuestions{}, &llm.ValidationError{Field: "n_questions", Reason: "must be positive"}
	}
	msgs, err := w.tmpl.messages(ctx, map[string]any{"notes_md": in.NotesMD, "n_questions": in.NQuestions})
	if err != nil {
		return llm.QuizQuestions{}, err
	}
	out, err := generate(ctx, w.model, w.log, "quiz_generation", msgs)
	if err != nil {
		return llm.QuizQuestions{}, err
	}
	quiz, err := ParseQuestions(out)
	if err != nil {
		return llm.QuizQuestions{}, llm.External("llm", err)
	}
	w.log.Info("quiz generated", "requested", in.NQuestions, "questions", len(quiz.Questions))
	return quiz, nil
}

// RunMap accepts {"notes_md", "n_questions"}.
func (w *QuizGenerationWorkflow) RunMap(ctx context.Context, in map[string]any) (llm.QuizQuestions, error) {
	notes, err := requiredString(in, "notes_md")
	if err != nil {
		return llm.QuizQuestions{}, err
	}
	n, err := intField(in, "n_questions")
	if err != nil {
		return llm.QuizQuestions{}, err
	}
	return w.Run(ctx, QuizGenerationInput{NotesMD: notes, NQuestions: n})
}

// ParseQuestions decodes model output, tolerating a fenced json block or
// prose around the object. When any id is missing or repeated, every
// question is renumbered q001, q002 and so on.
func ParseQuestions(out string) (llm.QuizQuestions, error) {
	body := extractJSON(out)
	var quiz llm.QuizQuestions
	if err := sonic.UnmarshalString(body, &quiz); err != nil {
		return llm.QuizQuestions{}, fmt.Errorf("parse quiz questions: %w", err)
	}
	seen := make(map[string]bool, len(quiz.Questions))
	renumber := false
	for _, q := range quiz.Questions {
		if q.ID == "" || seen[q.ID] {
			renumber = true
			break
		}
		seen[q.ID] = true
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if renumber {
			q.ID = fmt.Sprintf("q%03d", i+1)
		}
		if q.Refs == nil {
			q.Refs = []string{}
		}
	}
	return quiz, nil
}

func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		return s[i : j+1]
	}
	return s
}

// QuizEvaluationInput is the material for grading one quiz.
type QuizEvaluationInput struct {
	NotesMD   string
	QnA       []llm.QnA
	NotionURL string
}

// QuizEvaluationWorkflow grades answers against the notes and returns markdown.
type QuizEvaluationWorkflow struct {
	model model.BaseChatModel
	tmpl  *template
	log   *logger.Logger
}

func NewQuizEvaluationWorkflow(m model.BaseChatModel, p config.Prompt, log *logger.Logger) *QuizEvaluationWorkflow {
	return &QuizEvaluationWorkflow{model: m, tmpl: newTemplate(p), log: log.With("workflow", "quiz_evaluation")}
}

func (w *QuizEvaluationWorkflow) Run(ctx context.Context, in QuizEvaluationInput) (string, error) {
	if strings.TrimSpace(in.NotesMD) == "" {
		return "", llm.Missing("notes_md")
	}
	if len(in.QnA) == 0 {
		return "", llm.Missing("qna")
	}
	msgs, err := w.tmpl.messages(ctx, map[string]any{
		"notes_md":   in.NotesMD,
		"qna":        FormatQnA(in.QnA),
		"notion_url": in.NotionURL,
	})
	if err != nil {
		return "", err
	}
	out, err := generate(ctx, w.model, w.log, "quiz_evaluation", msgs)
	if err != nil {
		return "", err
	}
	w.log.Info("quiz evaluated", "answers", len(in.QnA))
	return out, nil
}

// RunMap accepts {"notes_md", "qna", "notion_url"}; qna is a list of
// {"question", "answer"} objects.
func (w *QuizEvaluationWorkflow) RunMap(ctx context.Context, in map[string]any) (string, error) {
	notes, err := requiredString(in, "notes_md")
	if err != nil {
		return "", err
	}
	qna, err := qnaField(in)
	if err != nil {
		return "", err
	}
	url, err := stringField(in, "notion_url")
	if err != nil {
		return "", err
	}
	return w.Run(ctx, QuizEvaluationInput{NotesMD: notes, QnA: qna, NotionURL: url})
}

func qnaField(in map[string]any) ([]llm.QnA, error) {
	switch v := in["qna"].(type) {
	case []llm.QnA:
		if len(v) == 0 {
			return nil, llm.Missing("qna")
		}
		return v, nil
	case []any:
		if len(v) == 0 {
			return nil, llm.Missing("qna")
		}
		out := make([]llm.QnA, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &llm.ValidationError{Field: "qna", Reason: fmt.Sprintf("item %d is %T", i, item)}
			}
			out[i].Question, _ = m["question"].(string)
			out[i].Answer, _ = m["answer"].(string)
		}
		return out, nil
	case nil:
		return nil, llm.Missing("qna")
	default:
		return nil, &llm.ValidationError{Field: "qna", Reason: fmt.Sprintf("expected list, got %T", v)}
	}
}

// FormatQnA renders question and answer pairs for the grading prompt.
func FormatQnA(qna []llm.QnA) string {
	var sb strings.Builder
	for i, p := range qna {
		answer := strings.TrimSpace(p.Answer)
		if answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&sb, "%d. Question: %s\n   Answer: %s\n", i+1, strings.TrimSpace(p.Question), answer)
	}
	return strings.TrimRight(sb.String(), "\n")
}
