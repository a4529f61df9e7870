package memory

import (
	"context"
	"fmt"
	"sync"

	"quizlive-service/internal/domain"
)

// AnswerRepo is an in-memory implementation of app.AnswerRepository. Records
// are keyed on (session, player, question index) so a duplicate create
// returns the stored answer instead of writing a second one.
type AnswerRepo struct {
	mu      sync.RWMutex
	answers map[string]domain.Answer
}

func NewAnswerRepo() *AnswerRepo {
	return &AnswerRepo{answers: make(map[string]domain.Answer)}
}

func (r *AnswerRepo) Create(_ context.Context, answer domain.Answer) (domain.Answer, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tripleKey(answer.SessionID, answer.PlayerID, answer.QuestionIndex)
	if existing, ok := r.answers[key]; ok {
		return existing, false, nil
	}
	r.answers[key] = answer
	return answer, true, nil
}

func (r *AnswerRepo) Get(_ context.Context, sessionID, playerID string, questionIndex int) (domain.Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	answer, ok := r.answers[tripleKey(sessionID, playerID, questionIndex)]
	if !ok {
		return domain.Answer{}, domain.ErrNotFound
	}
	return answer, nil
}

func tripleKey(sessionID, playerID string, questionIndex int) string {
	return fmt.Sprintf("%s|%s|%d", sessionID, playerID, questionIndex)
}
