package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// ErrNoSession is returned by Do when the session was never opened,
// was closed, or expired.
var ErrNoSession = errors.New("search session not found")

// SessionID identifies a browsing session. The bot uses the Telegram user ID.
type SessionID int64

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session is one user's browsing state: the cursor plus the active filter.
// Its fields are only reachable through Registry.Do, which holds the lock.
type Session struct {
	mu      sync.Mutex
	id      SessionID
	cursor  *Cursor
	filter  vacancy.Filter
	touched time.Time
	closed  bool
}

// ID returns the session identifier.
func (s *Session) ID() SessionID { return s.id }

// Cursor returns the session's cursor.
func (s *Session) Cursor() *Cursor { return s.cursor }

// Filter returns the active filter; the zero Filter matches everything.
func (s *Session) Filter() vacancy.Filter { return s.filter }

// SetFilter replaces the active filter.
func (s *Session) SetFilter(f vacancy.Filter) { s.filter = f }

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// ChunkLimit is the page size of every cursor.
	ChunkLimit int

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Registry owns the cursors of all open browsing sessions.
type Registry struct {
	loader vacancy.PageLoader
	bodies vacancy.BodyFetcher
	limit  int
	now    func() time.Time

	mu       sync.Mutex
	sessions map[SessionID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(loader vacancy.PageLoader, bodies vacancy.BodyFetcher, cfg RegistryConfig) *Registry {
	if cfg.ChunkLimit <= 0 {
		cfg.ChunkLimit = DefaultChunkLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		loader:   loader,
		bodies:   bodies,
		limit:    cfg.ChunkLimit,
		now:      cfg.Now,
		sessions: make(map[SessionID]*Session),
	}
}

// Open creates a fresh cursor for the session, replacing any previous one
// together with its filter.
func (r *Registry) Open(ctx context.Context, id SessionID) error {
	cursor, err := New(ctx, r.loader, r.bodies, WithChunkLimit(r.limit))
	if err != nil {
		return err
	}

	s := &Session{id: id, cursor: cursor, touched: r.now()}

	r.mu.Lock()
	prev := r.sessions[id]
	r.sessions[id] = s
	r.mu.Unlock()

	if prev != nil {
		prev.mu.Lock()
		prev.closed = true
		prev.mu.Unlock()
	}
	return nil
}

// Do runs fn with exclusive access to the session.
func (r *Registry) Do(id SessionID, fn func(s *Session) error) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Closed or replaced while we waited for the lock.
	if s.closed {
		return ErrNoSession
	}

	s.touched = r.now()
	return fn(s)
}

// Close discards the session. It reports whether one was open.
func (r *Registry) Close(id SessionID) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	}
	return ok
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were removed. Sessions in use at the moment are skipped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.touched.Before(cutoff) {
			s.closed = true
			delete(r.sessions, id)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
