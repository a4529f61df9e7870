package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"quizlive-service/internal/domain"
)

// PlayerRepo is an in-memory implementation of app.PlayerRepository.
type PlayerRepo struct {
	mu      sync.RWMutex
	players map[string]domain.Player
}

func NewPlayerRepo() *PlayerRepo {
	return &PlayerRepo{players: make(map[string]domain.Player)}
}

func (r *PlayerRepo) Create(_ context.Context, player domain.Player) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[player.ID] = player
	return player, nil
}

func (r *PlayerRepo) Get(_ context.Context, id string) (domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	player, ok := r.players[id]
	if !ok {
		return domain.Player{}, domain.ErrNotFound
	}
	return player, nil
}

func (r *PlayerRepo) FindByNickname(_ context.Context, sessionID, nickname string) (domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, player := range r.players {
		if player.SessionID == sessionID && strings.EqualFold(player.Nickname, nickname) {
			return player, nil
		}
	}
	return domain.Player{}, domain.ErrNotFound
}

func (r *PlayerRepo) ListBySession(_ context.Context, sessionID string) ([]domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var players []domain.Player
	for _, player := range r.players {
		if player.SessionID == sessionID {
			players = append(players, player)
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Nickname < players[j].Nickname })
	return players, nil
}

func (r *PlayerRepo) Update(_ context.Context, id string, apply func(*domain.Player) error) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return domain.Player{}, domain.ErrNotFound
	}
	if err := apply(&player); err != nil {
		return domain.Player{}, err
	}
	r.players[id] = player
	return player, nil
}
