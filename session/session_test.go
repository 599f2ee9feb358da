package session

import (
	"errors"
	"testing"

	"revise/llm"
)

func quiz() []llm.Question {
	return []llm.Question{
		{ID: "q001", Text: "What is a page?", Refs: []string{}},
		{ID: "q002", Text: "What is a frame?", Refs: []string{}},
	}
}

func TestRevisionFlow(t *testing.T) {
	s := New("u1")
	if _, ok := s.CurrentQuestion(); ok {
		t.Fatal("no question before the quiz starts")
	}
	if err := s.Answer("x"); err == nil {
		t.Fatal("answer before the quiz should fail")
	}

	note := Note{PageID: "p1", Title: "Paging", URL: "https://notion.so/p1"}
	if err := s.StartQuiz(note, "# Paging", quiz()); err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}
	q, ok := s.CurrentQuestion()
	if !ok || q.ID != "q001" {
		t.Fatalf("current question = %+v, %v", q, ok)
	}
	if err := s.Answer("a fixed-size block"); err != nil {
		t.Fatal(err)
	}
	if s.Done() {
		t.Fatal("done after one of two answers")
	}
	if err := s.Answer(""); err != nil {
		t.Fatal(err)
	}
	if !s.Done() {
		t.Fatal("expected done")
	}
	if answered, total := s.Progress(); answered != 2 || total != 2 {
		t.Errorf("progress = %d/%d", answered, total)
	}
	if s.QnA[0] != (llm.QnA{Question: "What is a page?", Answer: "a fixed-size block"}) {
		t.Errorf("unexpected qna: %+v", s.QnA)
	}

	s.SetEvaluation("## Score")
	s.MarkRevisionLogged()
	if !s.QuizEvaluated || !s.RevisionLogged || s.RevisionInProgress {
		t.Errorf("unexpected flags: %+v", s)
	}

	s.DueNotes = []Note{note}
	s.ResetRevision()
	if s.QuizGenerated || s.Selected != nil || len(s.QnA) != 0 || len(s.DueNotes) != 1 {
		t.Errorf("reset kept quiz state or dropped due notes: %+v", s)
	}
}

func TestStartQuizRequiresQuestions(t *testing.T) {
	err := New("u").StartQuiz(Note{PageID: "p"}, "", nil)
	if !errors.Is(err, llm.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
