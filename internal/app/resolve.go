package app

import (
	"context"

	"quizlive-service/internal/domain"
)

// resolveQuestions determines the ordered question sequence for a session.
// Question sets have been linked through several storage shapes over time, so
// resolution walks an ordered fallback chain, each lookup tried only when the
// previous one matched nothing:
//
//  1. questions stored inline on the session
//  2. the bank filtered by the session's primary set reference
//  3. the bank filtered by the legacy set reference
//  4. the bank keyed by the session id itself
//
// The first non-empty result wins. It runs exactly once, at start, and the
// result is pinned onto the session so a mid-game edit of the underlying set
// cannot skew a running game.
func (s *GameService) resolveQuestions(ctx context.Context, sess domain.Session) ([]domain.Question, error) {
	if len(sess.Questions) > 0 {
		return sess.Questions, nil
	}

	lookups := []func(context.Context) ([]domain.Question, error){
		func(ctx context.Context) ([]domain.Question, error) {
			if sess.QuestionSetID == "" {
				return nil, nil
			}
			return s.bank.BySet(ctx, sess.QuestionSetID)
		},
		func(ctx context.Context) ([]domain.Question, error) {
			if sess.LegacySetID == "" {
				return nil, nil
			}
			return s.bank.BySet(ctx, sess.LegacySetID)
		},
		func(ctx context.Context) ([]domain.Question, error) {
			return s.bank.BySession(ctx, sess.ID)
		},
	}

	for _, lookup := range lookups {
		questions, err := lookup(ctx)
		if err != nil {
			return nil, err
		}
		if len(questions) > 0 {
			return normalizeIndexes(questions), nil
		}
	}
	return nil, nil
}

// normalizeIndexes makes Index match slice position so the session's question
// pointer can be used directly, whatever ordinals the bank stored.
func normalizeIndexes(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := range out {
		out[i].Index = i
	}
	return out
}
