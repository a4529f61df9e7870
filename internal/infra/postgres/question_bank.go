package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizlive-service/internal/domain"
)

// QuestionBank loads ordered question sequences from the question_bank table.
// The same table serves both linkage shapes: rows carry either a set_id or a
// session_id, and ordinal preserves authoring order.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) BySet(ctx context.Context, setID string) ([]domain.Question, error) {
	return b.query(ctx,
		`SELECT data FROM question_bank WHERE set_id=$1 ORDER BY ordinal`, setID)
}

func (b *QuestionBank) BySession(ctx context.Context, sessionID string) ([]domain.Question, error) {
	return b.query(ctx,
		`SELECT data FROM question_bank WHERE session_id=$1 ORDER BY ordinal`, sessionID)
}

func (b *QuestionBank) query(ctx context.Context, sql string, arg string) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
