package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"revise/llm"
	"revise/llm/pipeline"
	"revise/pubsub"
)

type fakeRunner struct {
	err error
}

func (f fakeRunner) Run(_ context.Context, in llm.IngestionInput, r pipeline.ProgressReporter) (*llm.IngestionReport, error) {
	r.Report(pipeline.Progress{Step: 4, Total: pipeline.IngestionSteps, Label: pipeline.LabelPublish})
	if f.err != nil {
		return nil, f.err
	}
	return &llm.IngestionReport{
		PublishedResult: llm.PublishedResult{
			MarkdownResult: llm.MarkdownResult{ChapterName: in.ChapterName, ResourceTag: in.ResourceTag},
			Page:           llm.PageRef{ID: "p1", URL: "https://notion.so/p1"},
		},
		ArchivedKeys: []string{"active/os/chapter-02/a.jpg"},
		ChunkCount:   3,
	}, nil
}

func input() llm.IngestionInput {
	return llm.IngestionInput{ChapterName: "Chapter 2", ResourceTag: "OS", Files: []llm.File{{Name: "a.jpg", Data: []byte{1}}}}
}

func TestIngestSuccess(t *testing.T) {
	broker := pubsub.NewBroker[pipeline.Progress]()
	defer broker.Shutdown()
	m := New(context.Background(), fakeRunner{}, broker, input())

	finished := m.run()()
	ev := m.waitForProgress()()
	next, _ := m.Update(ev)
	next, _ = next.(Model).Update(finished)
	got := next.(Model)

	if got.Err() != nil {
		t.Fatalf("unexpected error: %v", got.Err())
	}
	if p := got.progress.Current(); p.Step != 4 || p.Label != pipeline.LabelPublish {
		t.Errorf("progress = %+v", p)
	}
	view := got.View()
	for _, want := range []string{"Published https://notion.so/p1", "active/os/chapter-02/", "Indexed 3 chunks"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestIngestFailure(t *testing.T) {
	broker := pubsub.NewBroker[pipeline.Progress]()
	defer broker.Shutdown()
	boom := &llm.PublishError{Reason: "no page id returned"}
	m := New(context.Background(), fakeRunner{err: boom}, broker, input())

	next, _ := m.Update(m.run()())
	got := next.(Model)
	if !errors.Is(got.Err(), llm.ErrPublish) {
		t.Errorf("Err = %v", got.Err())
	}
	if !strings.Contains(got.View(), "Failed: publish failed") {
		t.Errorf("unexpected view:\n%s", got.View())
	}
}
