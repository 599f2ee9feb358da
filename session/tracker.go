package session

import (
	"context"
	"errors"
	"sync"

	"revise/logger"
)

// Tracker owns the live session and saves it after every mutation.
type Tracker struct {
	mu    sync.Mutex
	s     *Session
	store Store
	log   *logger.Logger
}

// Resume loads id from store, or starts a fresh session when none is cached.
func Resume(ctx context.Context, store Store, id string, log *logger.Logger) (*Tracker, error) {
	s, err := store.Load(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		s = New(id)
	case err != nil:
		return nil, err
	default:
		log.Info("session resumed", "session_id", id, "questions", len(s.Questions), "answered", len(s.QnA))
	}
	return &Tracker{s: s, store: store, log: log.With("session_id", id)}, nil
}

// Update applies fn and saves the result. A failing fn leaves the cache
// untouched.
func (t *Tracker) Update(ctx context.Context, fn func(*Session) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := fn(t.s); err != nil {
		return err
	}
	return t.store.Save(ctx, t.s)
}

// View runs fn under the lock without saving.
func (t *Tracker) View(fn func(*Session)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.s)
}

// Clear resets the revision state. The cache entry is dropped unless a chat
// transcript remains, in which case the reset session is saved instead.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.ResetRevision()
	if len(t.s.Chat) > 0 {
		return t.store.Save(ctx, t.s)
	}
	return t.store.Clear(ctx, t.s.ID)
}
