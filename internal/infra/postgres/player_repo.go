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

// PlayerRepo stores player records as JSONB rows keyed by id, with the
// session/nickname pair lifted out for the reconnect lookup.
type PlayerRepo struct {
	pool *pgxpool.Pool
}

func NewPlayerRepo(pool *pgxpool.Pool) *PlayerRepo {
	return &PlayerRepo{pool: pool}
}

func (r *PlayerRepo) Create(ctx context.Context, player domain.Player) (domain.Player, error) {
	raw, err := json.Marshal(player)
	if err != nil {
		return domain.Player{}, fmt.Errorf("marshal player: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO players (id, session_id, nickname, data) VALUES ($1, $2, $3, $4)`,
		player.ID, player.SessionID, player.Nickname, raw)
	if err != nil {
		return domain.Player{}, fmt.Errorf("insert player: %w", err)
	}
	return player, nil
}

func (r *PlayerRepo) Get(ctx context.Context, id string) (domain.Player, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM players WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("load player: %w", err)
	}
	return unmarshalPlayer(raw)
}

func (r *PlayerRepo) FindByNickname(ctx context.Context, sessionID, nickname string) (domain.Player, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM players WHERE session_id=$1 AND lower(nickname)=lower($2) LIMIT 1`,
		sessionID, nickname).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("find player: %w", err)
	}
	return unmarshalPlayer(raw)
}

func (r *PlayerRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data FROM players WHERE session_id=$1 ORDER BY nickname`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		player, err := unmarshalPlayer(raw)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func (r *PlayerRepo) Update(ctx context.Context, id string, apply func(*domain.Player) error) (domain.Player, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Player{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT data FROM players WHERE id=$1 FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("lock player: %w", err)
	}
	player, err := unmarshalPlayer(raw)
	if err != nil {
		return domain.Player{}, err
	}
	if err := apply(&player); err != nil {
		return domain.Player{}, err
	}
	updated, err := json.Marshal(player)
	if err != nil {
		return domain.Player{}, fmt.Errorf("marshal player: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE players SET data=$2 WHERE id=$1`, id, updated); err != nil {
		return domain.Player{}, fmt.Errorf("update player: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Player{}, fmt.Errorf("commit: %w", err)
	}
	return player, nil
}

func unmarshalPlayer(raw []byte) (domain.Player, error) {
	var player domain.Player
	if err := json.Unmarshal(raw, &player); err != nil {
		return domain.Player{}, fmt.Errorf("unmarshal player: %w", err)
	}
	return player, nil
}
