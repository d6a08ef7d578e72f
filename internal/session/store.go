package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/attendobot/core/logger"
)

// Store keeps sessions in memory for the process lifetime.
// Records handed out are copies; Save writes them back.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	locksMu sync.Mutex
	locks   map[int64]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*identityLock),
	}
}

// Get returns a copy of the session for id if one exists.
func (s *Store) Get(id int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// GetOrCreate returns a copy of the session for id, creating an empty one on first use.
func (s *Store) GetOrCreate(id int64) Session {
	if sess, ok := s.Get(id); ok {
		return sess
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{ID: id, Step: NoFlow}
		s.sessions[id] = sess
		logger.Debug(context.Background(), "session", "session.created",
			slog.Int64("user_id", id),
		)
	}
	return sess.clone()
}

// Save stores sess under its ID. A draft that was replaced is released.
func (s *Store) Save(sess Session) {
	if sess.Step == "" {
		sess.Step = NoFlow
	}
	stored := sess.clone()

	s.mu.Lock()
	prev := s.sessions[sess.ID]
	s.sessions[sess.ID] = &stored
	s.mu.Unlock()

	if prev != nil && prev.Draft != nil && prev.Draft.AudioPath != "" &&
		(stored.Draft == nil || stored.Draft.AudioPath != prev.Draft.AudioPath) {
		releaseDraft(sess.ID, prev.Draft)
	}
}

// ClearFlow resets the step to NoFlow and drops the draft, batch, quiz
// and pending username. Tokens and role are kept. The draft's temporary
// file is removed.
func (s *Store) ClearFlow(id int64) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	var (
		draft *UploadDraft
		from  Step
	)
	if ok {
		from = sess.Step
		draft = sess.resetFlow()
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	releaseDraft(id, draft)
	if from != NoFlow {
		logger.Debug(context.Background(), "session", "flow.cleared",
			slog.Int64("user_id", id),
			slog.String("prev_step", string(from)),
		)
	}
}

// Lock acquires the exclusive per-identity lock and returns its release func.
func (s *Store) Lock(id int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &identityLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, id)
			}
			s.locksMu.Unlock()
		})
	}
}

// Count reports how many sessions sit in each step.
func (s *Store) Count() map[Step]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Step]int)
	for _, sess := range s.sessions {
		out[sess.Step]++
	}
	return out
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close releases every outstanding draft file.
func (s *Store) Close() {
	s.mu.Lock()
	drafts := make(map[int64]*UploadDraft)
	for id, sess := range s.sessions {
		if sess.Draft != nil {
			drafts[id] = sess.Draft
			sess.Draft = nil
		}
	}
	s.mu.Unlock()
	for id, d := range drafts {
		releaseDraft(id, d)
	}
}

func releaseDraft(id int64, d *UploadDraft) {
	if d == nil {
		return
	}
	path := d.AudioPath
	if err := d.Close(); err != nil {
		logger.Warn(context.Background(), "session", "draft.release_failed",
			slog.Int64("user_id", id),
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
	}
}
