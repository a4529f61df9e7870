package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"quizlive-service/internal/domain"
)

// SubmitAnswer validates, scores and persists one player's answer to one
// question. Submission is idempotent on (session, player, question index): a
// repeat returns the stored answer and leaves the player's aggregates alone.
func (s *GameService) SubmitAnswer(ctx context.Context, sessionID, playerID string, questionIndex int, selection string, responseMs int) (domain.Answer, int, bool, error) {
	if sessionID == "" || playerID == "" || selection == "" || questionIndex < 0 || responseMs < 0 {
		return domain.Answer{}, 0, false, domain.ErrMissingFields
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, 0, false, err
	}
	player, err := s.players.Get(ctx, playerID)
	if err != nil || player.SessionID != sessionID {
		return domain.Answer{}, 0, false, domain.ErrNotFound
	}
	// Only questions already shown accept answers; pre-answering the rest of
	// the pinned list would bank the full speed bonus.
	if questionIndex >= len(sess.Questions) || questionIndex > sess.CurrentQuestion {
		return domain.Answer{}, 0, false, domain.ErrNotFound
	}
	question := sess.Questions[questionIndex]

	correct := answersMatch(selection, question.Answer)
	multiplier := 1.0 + float64(questionIndex)*sess.Settings.MultiplierStep
	points := Score(correct, responseMs, sess.Settings.QuestionTimeLimitMs, questionIndex, sess.Settings.BasePoints, sess.Settings.MultiplierStep)

	answer := domain.Answer{
		ID:            s.newID(),
		SessionID:     sessionID,
		PlayerID:      playerID,
		QuestionIndex: questionIndex,
		Selection:     selection,
		Correct:       correct,
		ResponseMs:    responseMs,
		Points:        points,
		Multiplier:    multiplier,
		CreatedAt:     s.now(),
	}
	stored, created, err := s.answers.Create(ctx, answer)
	if err != nil {
		return domain.Answer{}, 0, false, err
	}
	if !created {
		// Duplicate submission: the first answer stands, aggregates untouched.
		return stored, stored.Points, stored.Correct, nil
	}

	if err := s.applyAggregates(ctx, playerID, stored); err != nil {
		return domain.Answer{}, 0, false, err
	}

	s.logger.Debug("answer recorded",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Int("question", questionIndex),
		zap.Bool("correct", correct),
		zap.Int("points", points))
	s.broadcast(ctx, sessionID)
	return stored, points, correct, nil
}

// applyAggregates folds one new answer into the player's rolling statistics.
// Every value derives from the previous stored value plus this answer, so a
// retried write converges instead of drifting.
func (s *GameService) applyAggregates(ctx context.Context, playerID string, answer domain.Answer) error {
	now := s.now()
	_, err := s.players.Update(ctx, playerID, func(cur *domain.Player) error {
		cur.AnsweredCount++
		cur.AvgResponseMs += (float64(answer.ResponseMs) - cur.AvgResponseMs) / float64(cur.AnsweredCount)
		if answer.Correct {
			cur.CorrectCount++
			cur.TotalPoints += answer.Points
			cur.Streak++
			if cur.Streak > cur.BestStreak {
				cur.BestStreak = cur.Streak
			}
			// First correct answer seeds the fastest time; 0 ms is a real
			// value, not an unset marker.
			if cur.CorrectCount == 1 || answer.ResponseMs < cur.FastestCorrectMs {
				cur.FastestCorrectMs = answer.ResponseMs
			}
		} else {
			cur.Streak = 0
		}
		cur.LastSeen = now
		return nil
	})
	return err
}

// answersMatch compares a submitted selection to the stored correct value.
// Free-text answers tolerate surrounding whitespace and case differences.
func answersMatch(selection, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(selection), strings.TrimSpace(correct))
}
