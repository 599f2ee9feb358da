package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"revise/logger"
)

func populated() *Session {
	s := New("user-1")
	_ = s.StartQuiz(Note{PageID: "p1", Title: "Paging", URL: "https://notion.so/p1"}, "# Paging", quiz())
	_ = s.Answer("blocks")
	s.Chat = []*schema.Message{schema.UserMessage("hi"), schema.AssistantMessage("hello", nil)}
	return s
}

func checkRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Save(ctx, populated()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Selected == nil || got.Selected.PageID != "p1" || got.CurrentIdx != 1 || len(got.QnA) != 1 {
		t.Errorf("revision state lost: %+v", got)
	}
	if len(got.Chat) != 2 || got.Chat[1].Role != schema.Assistant || got.Chat[1].Content != "hello" {
		t.Errorf("chat lost: %+v", got.Chat)
	}
	if q, ok := got.CurrentQuestion(); !ok || q.ID != "q002" {
		t.Errorf("resumed at %+v", q)
	}

	if err := store.Clear(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	checkRoundTrip(t, NewMemoryStore(0))
}

func TestMemoryStoreExpiry(t *testing.T) {
	m := NewMemoryStore(time.Minute)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	_ = m.Save(context.Background(), New("u"))

	now = now.Add(2 * time.Minute)
	if _, err := m.Load(context.Background(), "u"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired session, got %v", err)
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, "test", time.Hour)
}

func TestRedisStore(t *testing.T) {
	_, store := newRedis(t)
	checkRoundTrip(t, store)
}

func TestRedisStoreTTL(t *testing.T) {
	mr, store := newRedis(t)
	ctx := context.Background()
	if err := store.Save(ctx, New("u")); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:session:u") {
		t.Fatal("expected namespaced key")
	}
	if ttl := mr.TTL("test:session:u"); ttl != time.Hour {
		t.Errorf("TTL = %s, want 1h", ttl)
	}
	mr.FastForward(61 * time.Minute)
	if _, err := store.Load(ctx, "u"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestTrackerSavesEveryUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	tr, err := Resume(ctx, store, "user-1", logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Update(ctx, func(s *Session) error {
		return s.StartQuiz(Note{PageID: "p1"}, "notes", quiz())
	}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Update(ctx, func(s *Session) error { return s.Answer("a") }); err != nil {
		t.Fatal(err)
	}

	resumed, err := Resume(ctx, store, "user-1", logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	resumed.View(func(s *Session) {
		if s.CurrentIdx != 1 || len(s.QnA) != 1 {
			t.Errorf("resume lost progress: idx=%d qna=%d", s.CurrentIdx, len(s.QnA))
		}
	})

	boom := errors.New("boom")
	if err := tr.Update(ctx, func(s *Session) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected fn error, got %v", err)
	}

	if err := tr.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected cleared cache, got %v", err)
	}
}

func TestTrackerClearKeepsChatTranscript(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	if err := store.Save(ctx, populated()); err != nil {
		t.Fatal(err)
	}
	tr, err := Resume(ctx, store, "user-1", logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() after Clear error = %v", err)
	}
	if len(got.Chat) != 2 {
		t.Errorf("chat = %d messages, want 2", len(got.Chat))
	}
	if got.Selected != nil || len(got.QnA) != 0 || len(got.Questions) != 0 {
		t.Errorf("revision state survived: %+v", got)
	}
}
