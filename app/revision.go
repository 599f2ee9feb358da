package app

import (
	"context"
	"fmt"

	"revise/llm"
	"revise/llm/pipeline"
	"revise/llm/workflow"
	"revise/logger"
	"revise/notion"
	"revise/session"
)

type DueSource interface {
	FetchDueNotes(ctx context.Context) ([]notion.Page, error)
}

type QuizRunner interface {
	Run(ctx context.Context, req pipeline.QuizRequest) (*llm.QuizState, error)
}

type RevisionLogger interface {
	LogRevision(ctx context.Context, pageID, effort string) (bool, error)
}

// Revision drives the pick, quiz, grade and log flow over a session.
type Revision struct {
	due      DueSource
	quiz     QuizRunner
	evaluate workflow.Workflow[workflow.QuizEvaluationInput, string]
	revised  RevisionLogger
	log      *logger.Logger
}

func NewRevision(due DueSource, quiz QuizRunner, eval workflow.Workflow[workflow.QuizEvaluationInput, string], revised RevisionLogger, log *logger.Logger) *Revision {
	return &Revision{due: due, quiz: quiz, evaluate: eval, revised: revised, log: log.With("component", "revision")}
}

// DueNotes returns the cached due list, querying the store when it is empty
// or refresh is set. Pages without a title are skipped.
func (r *Revision) DueNotes(ctx context.Context, t *session.Tracker, refresh bool) ([]session.Note, error) {
	var cached []session.Note
	t.View(func(s *session.Session) { cached = s.DueNotes })
	if len(cached) > 0 && !refresh {
		return cached, nil
	}

	pages, err := r.due.FetchDueNotes(ctx)
	if err != nil {
		return nil, err
	}
	notes := make([]session.Note, 0, len(pages))
	for _, p := range pages {
		title := notion.Title(p.Properties, notion.PropName)
		if title == "" || p.ID == "" || p.URL == "" {
			continue
		}
		notes = append(notes, session.Note{PageID: p.ID, Title: title, URL: p.URL})
	}
	err = t.Update(ctx, func(s *session.Session) error {
		s.DueNotes = notes
		return nil
	})
	return notes, err
}

// Start generates a quiz for note and makes its first question current.
func (r *Revision) Start(ctx context.Context, t *session.Tracker, note session.Note, nQuestions int) error {
	state, err := r.quiz.Run(ctx, pipeline.QuizRequest{PageID: note.PageID, URL: note.URL, NQuestions: nQuestions})
	if err != nil {
		return err
	}
	r.log.Info("quiz started", "page_id", note.PageID, "questions", len(state.Questions))
	return t.Update(ctx, func(s *session.Session) error {
		return s.StartQuiz(note, state.NotesMD, state.Questions)
	})
}

// Answer records text against the current question. It returns the next
// question, or ok=false once every question is answered.
func (r *Revision) Answer(ctx context.Context, t *session.Tracker, text string) (next llm.Question, ok bool, err error) {
	err = t.Update(ctx, func(s *session.Session) error {
		if err := s.Answer(text); err != nil {
			return err
		}
		next, ok = s.CurrentQuestion()
		return nil
	})
	return next, ok, err
}

// Evaluate grades the answers once; later calls return the stored report.
func (r *Revision) Evaluate(ctx context.Context, t *session.Tracker) (string, error) {
	var (
		in     workflow.QuizEvaluationInput
		done   bool
		report string
	)
	t.View(func(s *session.Session) {
		done = s.Done()
		if s.QuizEvaluated {
			report = s.EvaluationOutput
		}
		in = workflow.QuizEvaluationInput{NotesMD: s.NotesMD, QnA: s.QnA}
		if s.Selected != nil {
			in.NotionURL = s.Selected.URL
		}
	})
	if report != "" {
		return report, nil
	}
	if !done {
		return "", fmt.Errorf("quiz is not finished")
	}

	report, err := r.evaluate.Run(ctx, in)
	if err != nil {
		return "", err
	}
	return report, t.Update(ctx, func(s *session.Session) error {
		s.SetEvaluation(report)
		return nil
	})
}

// Log records the revision in the document store and clears the cached
// session.
func (r *Revision) Log(ctx context.Context, t *session.Tracker, effort string) error {
	var (
		pageID string
		logged bool
	)
	t.View(func(s *session.Session) {
		if s.Selected != nil {
			pageID = s.Selected.PageID
		}
		logged = s.RevisionLogged
	})
	if pageID == "" {
		return llm.Missing("selected page")
	}
	if logged {
		return nil
	}
	if _, err := r.revised.LogRevision(ctx, pageID, effort); err != nil {
		return err
	}
	if err := t.Update(ctx, func(s *session.Session) error {
		s.MarkRevisionLogged()
		return nil
	}); err != nil {
		return err
	}
	return t.Clear(ctx)
}
