package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"quizlive-service/internal/domain"
)

const (
	nicknameMinLen = 2
	nicknameMaxLen = 16
)

// JoinSession admits a player into the session behind a join code. A nickname
// already present in the session is treated as a reconnect: the existing
// player record is refreshed and the player count stays put.
func (s *GameService) JoinSession(ctx context.Context, joinCode, nickname, learnerID string) (domain.Session, domain.Player, error) {
	nickname = strings.TrimSpace(nickname)
	if n := utf8.RuneCountInString(nickname); n < nicknameMinLen || n > nicknameMaxLen {
		return domain.Session{}, domain.Player{}, domain.ErrInvalidNickname
	}

	code := strings.ToUpper(strings.TrimSpace(joinCode))
	sess, err := s.sessions.FindByJoinCode(ctx, code)
	if err != nil {
		// Wrong code and ended session collapse to the same answer so a
		// prober cannot tell live codes from dead ones.
		return domain.Session{}, domain.Player{}, domain.ErrNotFound
	}

	existing, err := s.players.FindByNickname(ctx, sess.ID, nickname)
	switch {
	case err == nil:
		return s.reconnect(ctx, sess, existing)
	case errors.Is(err, domain.ErrNotFound):
		// First time this nickname appears; fall through to create.
	default:
		return domain.Session{}, domain.Player{}, err
	}

	player := domain.Player{
		ID:        s.newID(),
		SessionID: sess.ID,
		Nickname:  nickname,
		LearnerID: learnerID,
		Connected: true,
		LastSeen:  s.now(),
	}
	created, err := s.players.Create(ctx, player)
	if err != nil {
		return domain.Session{}, domain.Player{}, err
	}
	sess, err = s.sessions.Update(ctx, sess.ID, func(cur *domain.Session) error {
		cur.PlayerCount++
		return nil
	})
	if err != nil {
		return domain.Session{}, domain.Player{}, err
	}

	s.logger.Info("player joined",
		zap.String("session_id", sess.ID),
		zap.String("player_id", created.ID),
		zap.String("nickname", nickname))
	s.broadcast(ctx, sess.ID)
	return sess, created, nil
}

func (s *GameService) reconnect(ctx context.Context, sess domain.Session, player domain.Player) (domain.Session, domain.Player, error) {
	now := s.now()
	refreshed, err := s.players.Update(ctx, player.ID, func(cur *domain.Player) error {
		cur.Connected = true
		cur.LastSeen = now
		return nil
	})
	if err != nil {
		return domain.Session{}, domain.Player{}, err
	}
	s.logger.Info("player reconnected",
		zap.String("session_id", sess.ID),
		zap.String("player_id", refreshed.ID),
		zap.String("nickname", refreshed.Nickname))
	s.broadcast(ctx, sess.ID)
	return sess, refreshed, nil
}

// MarkDisconnected flags a player as gone without removing their record, so
// they can reconnect later under the same nickname.
func (s *GameService) MarkDisconnected(ctx context.Context, playerID string) {
	now := s.now()
	player, err := s.players.Update(ctx, playerID, func(cur *domain.Player) error {
		cur.Connected = false
		cur.LastSeen = now
		return nil
	})
	if err != nil {
		s.logger.Warn("mark disconnected failed", zap.String("player_id", playerID), zap.Error(err))
		return
	}
	s.broadcast(ctx, player.SessionID)
}
