// Package dbtest provides a connection stand-in so the service and CLI can be
// tested without a running PostgreSQL server. Pair it with a pgxmock
// connection as the Querier.
package dbtest

import (
	"context"
	"sync"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
)

// Session hands Q to every Do call, one caller at a time. Like a pgx
// connection it is unusable once a statement's context ends early, and
// once Close is called.
type Session struct {
	Q database.Querier

	// CloseErr is returned from Close.
	CloseErr error

	mu     sync.Mutex
	closed bool
	broken bool
}

// NewSession wraps q.
func NewSession(q database.Querier) *Session {
	return &Session{Q: q}
}

func (s *Session) Do(ctx context.Context, fn func(database.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.broken {
		return errs.New(errs.ErrKindConnection, "connection is closed")
	}
	err := fn(s.Q)
	if ctx.Err() != nil {
		s.broken = true
	}
	return err
}

func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.CloseErr
}

// IsClosed reports whether the session can no longer run statements.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.broken
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
