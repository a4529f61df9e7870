package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizlive-service/internal/domain"
)

// AnswerRepo stores answers append-only. The unique index on
// (session_id, player_id, question_index) is what makes submission
// idempotent even when two retries race.
type AnswerRepo struct {
	pool *pgxpool.Pool
}

func NewAnswerRepo(pool *pgxpool.Pool) *AnswerRepo {
	return &AnswerRepo{pool: pool}
}

func (r *AnswerRepo) Create(ctx context.Context, answer domain.Answer) (domain.Answer, bool, error) {
	raw, err := json.Marshal(answer)
	if err != nil {
		return domain.Answer{}, false, fmt.Errorf("marshal answer: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO answers (id, session_id, player_id, question_index, data)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, player_id, question_index) DO NOTHING`,
		answer.ID, answer.SessionID, answer.PlayerID, answer.QuestionIndex, raw)
	if err != nil {
		return domain.Answer{}, false, fmt.Errorf("insert answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.Get(ctx, answer.SessionID, answer.PlayerID, answer.QuestionIndex)
		if err != nil {
			return domain.Answer{}, false, err
		}
		return existing, false, nil
	}
	return answer, true, nil
}

func (r *AnswerRepo) Get(ctx context.Context, sessionID, playerID string, questionIndex int) (domain.Answer, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM answers WHERE session_id=$1 AND player_id=$2 AND question_index=$3`,
		sessionID, playerID, questionIndex).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("load answer: %w", err)
	}
	var answer domain.Answer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return domain.Answer{}, fmt.Errorf("unmarshal answer: %w", err)
	}
	return answer, nil
}
