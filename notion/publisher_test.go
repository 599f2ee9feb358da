package notion

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"revise/llm"
	"revise/logger"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeNotion is an in-memory stand-in for the REST API.
type fakeNotion struct {
	mu        sync.Mutex
	calls     []recordedCall
	pages     map[string]map[string]any
	createID  string
	queryPage [][]Page
}

func newFakeNotion() *fakeNotion {
	return &fakeNotion{pages: map[string]map[string]any{}, createID: "page-1"}
}

func (f *fakeNotion) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" || r.Header.Get("Notion-Version") == "" {
			t.Errorf("missing auth headers on %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			if err := sonic.Unmarshal(data, &body); err != nil {
				t.Errorf("bad request body: %v", err)
			}
		}
		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/pages":
			writeJSON(w, map[string]any{"id": f.createID, "url": "https://notion.so/" + f.createID})
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/children"):
			writeJSON(w, map[string]any{"object": "list"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/pages/"):
			id := strings.TrimPrefix(r.URL.Path, "/v1/pages/")
			props, ok := f.pages[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				writeJSON(w, map[string]any{"code": "object_not_found", "message": "no page"})
				return
			}
			writeJSON(w, map[string]any{"id": id, "properties": props})
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/v1/pages/"):
			id := strings.TrimPrefix(r.URL.Path, "/v1/pages/")
			props, _ := body["properties"].(map[string]any)
			f.mu.Lock()
			for k, v := range props {
				f.pages[id][k] = v
			}
			f.mu.Unlock()
			writeJSON(w, map[string]any{"id": id})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query"):
			idx := 0
			if c, ok := body["start_cursor"].(string); ok {
				idx = int(c[0] - '0')
			}
			res := map[string]any{"results": f.queryPage[idx], "has_more": idx+1 < len(f.queryPage)}
			if idx+1 < len(f.queryPage) {
				res["next_cursor"] = string(rune('0' + idx + 1))
			}
			writeJSON(w, res)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeNotion) callsMatching(method, suffix string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Method == method && strings.HasSuffix(c.Path, suffix) {
			out = append(out, c)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	b, _ := sonic.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

type staticConverter struct {
	blocks []Block
	err    error
}

func (s staticConverter) Convert(context.Context, string) ([]Block, error) {
	return s.blocks, s.err
}

func paragraphs(n int) []Block {
	out := make([]Block, n)
	for i := range out {
		out[i] = newBlock("paragraph", map[string]any{"rich_text": plainText("p")})
	}
	return out
}

func newTestPublisher(t *testing.T, f *fakeNotion, conv BlockConverter) (*Publisher, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{BaseURL: srv.URL, Token: "test-token"}, srv.Client(), logger.Nop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	p := NewPublisher(client, conv, "knowledge-db", logger.Nop())
	var sleeps []time.Duration
	p.Sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	p.Now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return p, &sleeps
}

func TestPublishBatchesLargeDocuments(t *testing.T) {
	f := newFakeNotion()
	p, sleeps := newTestPublisher(t, f, staticConverter{blocks: paragraphs(250)})

	ref, err := p.Publish(context.Background(), "Chapter 1", "# ignored", "OS")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if ref.ID != "page-1" || ref.URL == "" {
		t.Errorf("ref = %+v", ref)
	}

	creates := f.callsMatching(http.MethodPost, "/v1/pages")
	if len(creates) != 1 {
		t.Fatalf("create calls = %d, want 1", len(creates))
	}
	if n := len(creates[0].Body["children"].([]any)); n != 100 {
		t.Errorf("create carried %d blocks, want 100", n)
	}
	parent := creates[0].Body["parent"].(map[string]any)
	if parent["database_id"] != "knowledge-db" {
		t.Errorf("parent = %v", parent)
	}

	appends := f.callsMatching(http.MethodPatch, "/children")
	if len(appends) != 2 {
		t.Fatalf("append calls = %d, want 2", len(appends))
	}
	for i, want := range []int{100, 50} {
		if n := len(appends[i].Body["children"].([]any)); n != want {
			t.Errorf("append %d carried %d blocks, want %d", i, n, want)
		}
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != time.Second {
		t.Errorf("sleeps = %v, want exactly one 1s pause", *sleeps)
	}
}

func TestPublishSmallDocumentNoAppend(t *testing.T) {
	f := newFakeNotion()
	p, sleeps := newTestPublisher(t, f, staticConverter{blocks: paragraphs(100)})

	if _, err := p.Publish(context.Background(), "t", "md", "tag"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if n := len(f.callsMatching(http.MethodPatch, "/children")); n != 0 {
		t.Errorf("append calls = %d, want 0", n)
	}
	if len(*sleeps) != 0 {
		t.Errorf("unexpected pauses %v", *sleeps)
	}
}

func TestPublishWritesProperties(t *testing.T) {
	f := newFakeNotion()
	p, _ := newTestPublisher(t, f, staticConverter{blocks: paragraphs(1)})

	title := strings.Repeat("x", 250)
	if _, err := p.Publish(context.Background(), title, "md", "Algorithms"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	props := f.callsMatching(http.MethodPost, "/v1/pages")[0].Body["properties"].(map[string]any)
	if got := Title(props, PropName); len(got) != 200 {
		t.Errorf("title length = %d, want 200", len(got))
	}
	if DateStart(props, PropCreatedDate) != "2026-03-14" || DateStart(props, PropLastReview) != "2026-03-14" {
		t.Errorf("dates = %v", props)
	}
	if Number(props, PropRevisions) != 0 {
		t.Errorf("revisions = %d", Number(props, PropRevisions))
	}
	if SelectName(props, PropResourceTag) != "Algorithms" {
		t.Errorf("resource tag = %q", SelectName(props, PropResourceTag))
	}
}

func TestPublishMissingIDIsPublishError(t *testing.T) {
	f := newFakeNotion()
	f.createID = ""
	p, _ := newTestPublisher(t, f, staticConverter{blocks: paragraphs(1)})

	_, err := p.Publish(context.Background(), "t", "md", "tag")
	if !errors.Is(err, llm.ErrPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestPublishConversionFailureStopsBeforeCreate(t *testing.T) {
	f := newFakeNotion()
	convErr := llm.NewConversionError(errors.New("bad"), "stderr", "")
	p, _ := newTestPublisher(t, f, staticConverter{err: convErr})

	_, err := p.Publish(context.Background(), "t", "md", "tag")
	if !errors.Is(err, llm.ErrConversion) {
		t.Fatalf("expected conversion error, got %v", err)
	}
	if n := len(f.callsMatching(http.MethodPost, "/v1/pages")); n != 0 {
		t.Errorf("create should not be called, got %d", n)
	}
}

func TestLogRevisionSameDayIsIdempotent(t *testing.T) {
	f := newFakeNotion()
	f.pages["p1"] = map[string]any{
		PropLastReview: dateProp("2026-03-10"),
		PropRevisions:  map[string]any{"number": 2},
	}
	p, _ := newTestPublisher(t, f, staticConverter{})

	for i := 0; i < 2; i++ {
		ok, err := p.LogRevision(context.Background(), "p1", "")
		if err != nil || !ok {
			t.Fatalf("LogRevision() call %d = %v, %v", i+1, ok, err)
		}
	}
	updates := f.callsMatching(http.MethodPatch, "/v1/pages/p1")
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	props := updates[0].Body["properties"].(map[string]any)
	if Number(props, PropRevisions) != 3 {
		t.Errorf("revisions = %d, want 3", Number(props, PropRevisions))
	}
	if _, ok := props[PropEffort]; ok {
		t.Errorf("effort must not be written when the page lacks the property")
	}
}

func TestLogRevisionCapsAndEffort(t *testing.T) {
	f := newFakeNotion()
	f.pages["p2"] = map[string]any{
		PropLastReview: dateProp("2026-01-01"),
		PropRevisions:  map[string]any{"number": 5},
		PropEffort:     map[string]any{"select": nil},
	}
	p, _ := newTestPublisher(t, f, staticConverter{})

	if _, err := p.LogRevision(context.Background(), "p2", EffortHigh); err != nil {
		t.Fatalf("LogRevision() error = %v", err)
	}
	props := f.callsMatching(http.MethodPatch, "/v1/pages/p2")[0].Body["properties"].(map[string]any)
	if Number(props, PropRevisions) != 5 {
		t.Errorf("revisions = %d, want capped 5", Number(props, PropRevisions))
	}
	if SelectName(props, PropEffort) != EffortHigh {
		t.Errorf("effort = %q", SelectName(props, PropEffort))
	}
	if DateStart(props, PropLastReview) != "2026-03-14" {
		t.Errorf("last review = %q", DateStart(props, PropLastReview))
	}
}

func TestLogRevisionRejectsUnknownEffort(t *testing.T) {
	p, _ := newTestPublisher(t, newFakeNotion(), staticConverter{})
	if _, err := p.LogRevision(context.Background(), "p", "Extreme"); !errors.Is(err, llm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchDueFollowsPagination(t *testing.T) {
	f := newFakeNotion()
	f.queryPage = [][]Page{
		{{ID: "a"}, {ID: "b"}},
		{{ID: "c"}},
	}
	p, _ := newTestPublisher(t, f, staticConverter{})

	pages, err := p.FetchDueNotes(context.Background())
	if err != nil {
		t.Fatalf("FetchDueNotes() error = %v", err)
	}
	if len(pages) != 3 || pages[2].ID != "c" {
		t.Fatalf("pages = %+v", pages)
	}
	q := f.callsMatching(http.MethodPost, "/query")[0]
	filter := q.Body["filter"].(map[string]any)
	if filter["property"] != PropNextReview {
		t.Errorf("filter property = %v", filter["property"])
	}
	date := filter["formula"].(map[string]any)["date"].(map[string]any)
	if date["on_or_before"] != "2026-03-14" {
		t.Errorf("on_or_before = %v", date["on_or_before"])
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	p, _ := newTestPublisher(t, newFakeNotion(), staticConverter{})
	_, err := p.LogRevision(context.Background(), "missing", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Code != "object_not_found" {
		t.Fatalf("expected APIError 404, got %v", err)
	}
	if !errors.Is(err, llm.ErrExternalCall) {
		t.Errorf("expected external call failure wrapping")
	}
}
