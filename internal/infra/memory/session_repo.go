package memory

import (
	"context"
	"sync"
	"time"

	"quizlive-service/internal/domain"
)

// SessionRepo is an in-memory implementation of app.SessionRepository. The
// mutex makes each Update an atomic read-modify-write, mirroring what the
// SQL backend gets from a row lock.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *SessionRepo) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return session, nil
}

func (r *SessionRepo) Get(_ context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return session, nil
}

func (r *SessionRepo) Update(_ context.Context, id string, apply func(*domain.Session) error) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	if err := apply(&session); err != nil {
		return domain.Session{}, err
	}
	r.sessions[id] = session
	return session, nil
}

func (r *SessionRepo) FindByJoinCode(_ context.Context, code string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.JoinCode == code && !session.Status.Terminal() {
			return session, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (r *SessionRepo) CodeInUse(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.JoinCode == code && !session.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *SessionRepo) ListStale(_ context.Context, cutoff time.Time) ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stale []domain.Session
	for _, session := range r.sessions {
		if !session.Status.Terminal() && session.CreatedAt.Before(cutoff) {
			stale = append(stale, session)
		}
	}
	return stale, nil
}
