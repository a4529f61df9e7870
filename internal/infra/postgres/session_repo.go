package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizlive-service/internal/domain"
)

// SessionRepo stores sessions as JSONB rows, with the columns the engine
// filters on (join code, status, creation time) lifted out for indexing.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (id, join_code, status, created_at, data) VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.JoinCode, string(session.Status), session.CreatedAt, raw)
	if err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return unmarshalSession(raw)
}

// Update applies the mutation under a row lock so concurrent read-modify-write
// cycles on the same session serialize instead of clobbering each other.
func (r *SessionRepo) Update(ctx context.Context, id string, apply func(*domain.Session) error) (domain.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT data FROM sessions WHERE id=$1 FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("lock session: %w", err)
	}
	session, err := unmarshalSession(raw)
	if err != nil {
		return domain.Session{}, err
	}
	if err := apply(&session); err != nil {
		return domain.Session{}, err
	}
	updated, err := json.Marshal(session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("marshal session: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET status=$2, data=$3 WHERE id=$1`,
		id, string(session.Status), updated); err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Session{}, fmt.Errorf("commit: %w", err)
	}
	return session, nil
}

func (r *SessionRepo) FindByJoinCode(ctx context.Context, code string) (domain.Session, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM sessions WHERE join_code=$1 AND status <> 'ended' LIMIT 1`,
		code).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("find by join code: %w", err)
	}
	return unmarshalSession(raw)
}

func (r *SessionRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE join_code=$1 AND status <> 'ended')`,
		code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check join code: %w", err)
	}
	return exists, nil
}

func (r *SessionRepo) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data FROM sessions WHERE status <> 'ended' AND created_at < $1 ORDER BY created_at`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale: %w", err)
	}
	defer rows.Close()

	var stale []domain.Session
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session, err := unmarshalSession(raw)
		if err != nil {
			return nil, err
		}
		stale = append(stale, session)
	}
	return stale, rows.Err()
}

func unmarshalSession(raw []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}
