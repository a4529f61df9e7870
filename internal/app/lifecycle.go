package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"quizlive-service/internal/domain"
)

// Default game settings applied when a host leaves a field at its zero value.
const (
	defaultTimeLimitMs    = 15000
	defaultBasePoints     = 500
	defaultMultiplierStep = 0.25
)

// CreateSession allocates a join code and opens a lobby for the host.
func (s *GameService) CreateSession(ctx context.Context, hostID, questionSetID string, settings domain.Settings) (domain.Session, error) {
	if hostID == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	if questionSetID != "" {
		questions, err := s.bank.BySet(ctx, questionSetID)
		if err != nil {
			return domain.Session{}, err
		}
		if len(questions) == 0 {
			return domain.Session{}, domain.ErrNotFound
		}
	}

	if settings.QuestionTimeLimitMs <= 0 {
		settings.QuestionTimeLimitMs = defaultTimeLimitMs
	}
	if settings.BasePoints <= 0 {
		settings.BasePoints = defaultBasePoints
	}
	if settings.MultiplierStep <= 0 {
		settings.MultiplierStep = defaultMultiplierStep
	}

	code, err := s.allocateJoinCode(ctx)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		ID:              s.newID(),
		JoinCode:        code,
		HostID:          hostID,
		Status:          domain.StatusLobby,
		QuestionSetID:   questionSetID,
		CurrentQuestion: -1,
		Settings:        settings,
		CreatedAt:       s.now(),
	}
	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return domain.Session{}, err
	}
	s.logger.Info("session created",
		zap.String("session_id", created.ID),
		zap.String("join_code", created.JoinCode),
		zap.String("host_id", hostID))
	return created, nil
}

// TransitionSession drives the session state machine on behalf of the host.
//
//	lobby -start-> live
//	live -nextQuestion-> live (more remain) | ended (exhausted)
//	live -showLeaderboard-> intermission
//	intermission -nextQuestion-> live | ended
//	any non-terminal -end-> ended
func (s *GameService) TransitionSession(ctx context.Context, sessionID, actorID string, action domain.TransitionAction, reason string) (domain.Session, error) {
	if actorID == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.HostID != actorID {
		return domain.Session{}, domain.ErrForbidden
	}
	if sess.Status.Terminal() {
		return domain.Session{}, domain.ErrInvalidAction
	}

	var updated domain.Session
	switch action {
	case domain.ActionStart:
		updated, err = s.start(ctx, sess)
	case domain.ActionNextQuestion:
		updated, err = s.nextQuestion(ctx, sessionID)
	case domain.ActionShowLeaderboard:
		updated, err = s.showLeaderboard(ctx, sessionID)
	case domain.ActionEnd:
		if reason == "" {
			reason = domain.EndReasonHost
		}
		updated, err = s.end(ctx, sessionID, reason)
	default:
		return domain.Session{}, domain.ErrInvalidAction
	}
	if err != nil {
		return domain.Session{}, err
	}

	s.logger.Info("session transitioned",
		zap.String("session_id", sessionID),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)))
	s.broadcast(ctx, sessionID)
	return updated, nil
}

// start resolves the question sequence once and pins it onto the session. A
// failed resolution leaves the lobby untouched.
func (s *GameService) start(ctx context.Context, sess domain.Session) (domain.Session, error) {
	questions, err := s.resolveQuestions(ctx, sess)
	if err != nil {
		return domain.Session{}, err
	}
	if len(questions) == 0 {
		return domain.Session{}, domain.ErrNoQuestions
	}

	now := s.now()
	return s.sessions.Update(ctx, sess.ID, func(cur *domain.Session) error {
		if cur.Status != domain.StatusLobby {
			return domain.ErrInvalidAction
		}
		if cur.Transitioning {
			return domain.ErrConflict
		}
		cur.Questions = questions
		cur.Status = domain.StatusLive
		cur.CurrentQuestion = 0
		cur.QuestionStartedAt = now
		return nil
	})
}

// nextQuestion runs in two phases: the first write claims the transition lock
// so a racing trigger observes a conflict, the second writes the new status
// and clears the lock in the same step.
func (s *GameService) nextQuestion(ctx context.Context, sessionID string) (domain.Session, error) {
	claimed, err := s.sessions.Update(ctx, sessionID, func(cur *domain.Session) error {
		if cur.Status != domain.StatusLive && cur.Status != domain.StatusIntermission {
			return domain.ErrInvalidAction
		}
		if cur.Transitioning {
			return domain.ErrConflict
		}
		cur.Transitioning = true
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	next := claimed.CurrentQuestion + 1
	now := s.now()
	updated, err := s.sessions.Update(ctx, sessionID, func(cur *domain.Session) error {
		// end may cut through the lock between the two phases; an ended
		// session stays ended.
		if cur.Status.Terminal() || !cur.Transitioning {
			return domain.ErrConflict
		}
		if next >= len(cur.Questions) {
			cur.Status = domain.StatusEnded
			cur.EndReason = domain.EndReasonCompleted
			cur.EndedAt = &now
		} else {
			cur.Status = domain.StatusLive
			cur.CurrentQuestion = next
			cur.QuestionStartedAt = now
		}
		cur.Transitioning = false
		return nil
	})
	if err != nil {
		// A conflict means another writer took over the lock; anything else
		// is a failed write, so best-effort unlock to avoid a stuck session.
		if !errors.Is(err, domain.ErrConflict) {
			if _, uerr := s.sessions.Update(ctx, sessionID, func(cur *domain.Session) error {
				cur.Transitioning = false
				return nil
			}); uerr != nil {
				s.logger.Error("failed to release transition lock", zap.String("session_id", sessionID), zap.Error(uerr))
			}
		}
		return domain.Session{}, err
	}
	return updated, nil
}

func (s *GameService) showLeaderboard(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.sessions.Update(ctx, sessionID, func(cur *domain.Session) error {
		if cur.Status != domain.StatusLive {
			return domain.ErrInvalidAction
		}
		if cur.Transitioning {
			return domain.ErrConflict
		}
		cur.Status = domain.StatusIntermission
		return nil
	})
}

// end is always allowed from any non-terminal state and cuts through a stuck
// transition lock.
func (s *GameService) end(ctx context.Context, sessionID, reason string) (domain.Session, error) {
	now := s.now()
	return s.sessions.Update(ctx, sessionID, func(cur *domain.Session) error {
		if cur.Status.Terminal() {
			return domain.ErrInvalidAction
		}
		cur.Status = domain.StatusEnded
		cur.EndReason = reason
		cur.EndedAt = &now
		cur.Transitioning = false
		return nil
	})
}
