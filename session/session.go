// Package session holds per-user revision and chat state and persists it
// in a keyed cache so an interrupted session can resume.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"revise/llm"
)

// ErrNotFound is returned by Store.Load for an unknown or expired session.
var ErrNotFound = errors.New("session not found")

// Note is a due page offered for revision.
type Note struct {
	PageID string `json:"page_id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// Session is the state of one user session.
type Session struct {
	ID string `json:"id"`

	DueNotes           []Note         `json:"due_notes"`
	Selected           *Note          `json:"selected,omitempty"`
	NotesMD            string         `json:"notes_md"`
	Questions          []llm.Question `json:"questions"`
	CurrentIdx         int            `json:"current_question_idx"`
	QnA                []llm.QnA      `json:"qna"`
	EvaluationOutput   string         `json:"evaluation_output"`
	QuizGenerated      bool           `json:"quiz_generated"`
	QuizEvaluated      bool           `json:"quiz_evaluated"`
	RevisionInProgress bool           `json:"revision_in_progress"`
	RevisionLogged     bool           `json:"revision_logged"`

	Chat []*schema.Message `json:"chat"`

	UpdatedAt time.Time `json:"updated_at"`
}

func New(id string) *Session {
	return &Session{ID: id, DueNotes: []Note{}, Questions: []llm.Question{}, QnA: []llm.QnA{}}
}

// StartQuiz begins a quiz over note. Earlier answers and evaluation are
// discarded.
func (s *Session) StartQuiz(note Note, notesMD string, questions []llm.Question) error {
	if len(questions) == 0 {
		return &llm.ValidationError{Field: "questions", Reason: "quiz has no questions"}
	}
	s.Selected = &note
	s.NotesMD = notesMD
	s.Questions = questions
	s.CurrentIdx = 0
	s.QnA = []llm.QnA{}
	s.EvaluationOutput = ""
	s.QuizGenerated = true
	s.QuizEvaluated = false
	s.RevisionInProgress = true
	s.RevisionLogged = false
	return nil
}

// CurrentQuestion returns the question awaiting an answer.
func (s *Session) CurrentQuestion() (llm.Question, bool) {
	if !s.QuizGenerated || s.CurrentIdx < 0 || s.CurrentIdx >= len(s.Questions) {
		return llm.Question{}, false
	}
	return s.Questions[s.CurrentIdx], true
}

// Answer records an answer to the current question and moves on.
func (s *Session) Answer(text string) error {
	q, ok := s.CurrentQuestion()
	if !ok {
		return fmt.Errorf("no question awaiting an answer")
	}
	s.QnA = append(s.QnA, llm.QnA{Question: q.Text, Answer: text})
	s.CurrentIdx++
	return nil
}

// Done reports whether every question has been answered.
func (s *Session) Done() bool {
	return s.QuizGenerated && s.CurrentIdx >= len(s.Questions)
}

func (s *Session) SetEvaluation(report string) {
	s.EvaluationOutput = report
	s.QuizEvaluated = true
}

// Progress returns answered and total question counts.
func (s *Session) Progress() (answered, total int) {
	return len(s.QnA), len(s.Questions)
}

// MarkRevisionLogged ends the revision. The caller clears the cached copy.
func (s *Session) MarkRevisionLogged() {
	s.RevisionLogged = true
	s.RevisionInProgress = false
}

// ResetRevision drops the quiz but keeps the due list and chat.
func (s *Session) ResetRevision() {
	due, chat := s.DueNotes, s.Chat
	*s = *New(s.ID)
	s.DueNotes, s.Chat = due, chat
}
