package streaminghttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var errSessionClosed = errors.New("session is closed")

// lockedWriteFlusher wraps an io.Writer + http.Flusher with a mutex and the
// request context. It serializes concurrent writes/flushes and avoids writing
// after the peer has gone away.
type lockedWriteFlusher struct {
	io.Writer
	http.Flusher
	mu  sync.Mutex
	ctx context.Context
}

func (l *lockedWriteFlusher) Write(p []byte) (int, error) {
	if l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Re-check after acquiring the lock to minimize races with cancellation
	if l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	return l.Writer.Write(p)
}

func (l *lockedWriteFlusher) Flush() {
	if l.ctx.Err() != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		return
	}
	l.Flusher.Flush()
}

// session is one open SSE stream. It owns the keep-alive timer and the
// writable channel; once terminal, no further write is attempted.
type session struct {
	id        string
	wf        *lockedWriteFlusher
	keepAlive time.Duration
	done      atomic.Bool
}

func newSession(id string, w io.Writer, f http.Flusher, ctx context.Context, keepAlive time.Duration) *session {
	return &session{
		id:        id,
		wf:        &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx},
		keepAlive: keepAlive,
	}
}

// push emits one named SSE event with a JSON payload and flushes it.
func (s *session) push(event string, payload any) error {
	if s.done.Load() {
		return errSessionClosed
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.wf, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event, err)
	}
	s.wf.Flush()
	return nil
}

// comment emits a content-free SSE comment frame, used as a keep-alive.
func (s *session) comment(text string) error {
	if s.done.Load() {
		return errSessionClosed
	}
	if _, err := fmt.Fprintf(s.wf, ": %s\n\n", text); err != nil {
		return fmt.Errorf("failed to write comment frame: %w", err)
	}
	s.wf.Flush()
	return nil
}

// run drives the keep-alive timer until the peer disconnects, then marks the
// session terminal. The timer is cancelled exactly once.
func (s *session) run(ctx context.Context) {
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.close()
			return
		case <-ticker.C:
			if err := s.comment("keep-alive"); err != nil {
				s.close()
				return
			}
		}
	}
}

// close marks the session terminal. Idempotent.
func (s *session) close() {
	s.done.Store(true)
}
