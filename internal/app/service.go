package app

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizlive-service/internal/domain"
)

// SessionRepository is the authoritative store for session records. Update
// applies the mutation atomically against the current stored record; an error
// returned from apply aborts the write and is passed through unchanged.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, id string, apply func(*domain.Session) error) (domain.Session, error)
	// FindByJoinCode matches non-terminal sessions only.
	FindByJoinCode(ctx context.Context, code string) (domain.Session, error)
	// CodeInUse reports whether a non-terminal session holds the code.
	CodeInUse(ctx context.Context, code string) (bool, error)
	// ListStale returns non-terminal sessions created before the cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.Session, error)
}

// PlayerRepository stores per-session player records.
type PlayerRepository interface {
	Create(ctx context.Context, player domain.Player) (domain.Player, error)
	Get(ctx context.Context, id string) (domain.Player, error)
	FindByNickname(ctx context.Context, sessionID, nickname string) (domain.Player, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Player, error)
	Update(ctx context.Context, id string, apply func(*domain.Player) error) (domain.Player, error)
}

// AnswerRepository stores append-only answer facts. Create is keyed on
// (session, player, question index): when a record already exists it returns
// the stored one with created=false instead of writing a duplicate.
type AnswerRepository interface {
	Create(ctx context.Context, answer domain.Answer) (stored domain.Answer, created bool, err error)
	Get(ctx context.Context, sessionID, playerID string, questionIndex int) (domain.Answer, error)
}

// QuestionBank loads ordered question sequences from the external bank.
// Lookups that match nothing return an empty slice, not an error.
type QuestionBank interface {
	BySet(ctx context.Context, setID string) ([]domain.Question, error)
	BySession(ctx context.Context, sessionID string) ([]domain.Question, error)
}

// GameService contains the live quiz session use cases.
type GameService struct {
	sessions SessionRepository
	players  PlayerRepository
	answers  AnswerRepository
	bank     QuestionBank
	hub      *Hub
	logger   *zap.Logger

	now   func() time.Time
	newID func() string

	codeMu   sync.Mutex
	codeRand *rand.Rand
}

func NewGameService(sessions SessionRepository, players PlayerRepository, answers AnswerRepository, bank QuestionBank, logger *zap.Logger) *GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameService{
		sessions: sessions,
		players:  players,
		answers:  answers,
		bank:     bank,
		hub:      NewHub(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		codeRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *GameService) WithClock(now func() time.Time) *GameService {
	s.now = now
	return s
}

// Subscribe returns a channel receiving leaderboard snapshots for a session.
// The caller must invoke cancel to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Leaderboard, func(), error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	lb, err := s.Leaderboard(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(sessionID)
	ch <- lb
	return ch, cancel, nil
}

// Leaderboard builds the ordered scoreboard for a session from stored players.
func (s *GameService) Leaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	players, err := s.players.ListBySession(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    p.ID,
			Nickname:    p.Nickname,
			TotalPoints: p.TotalPoints,
			Streak:      p.Streak,
		})
	}
	byID := make(map[string]domain.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		// Tie-break by who reached the score earlier, then nickname.
		pi, pj := byID[entries[i].PlayerID], byID[entries[j].PlayerID]
		if !pi.LastSeen.Equal(pj.LastSeen) {
			return pi.LastSeen.Before(pj.LastSeen)
		}
		return entries[i].Nickname < entries[j].Nickname
	})

	return domain.Leaderboard{
		SessionID: sessionID,
		Status:    sess.Status,
		Question:  sess.CurrentQuestion,
		Entries:   entries,
		UpdatedAt: s.now(),
	}, nil
}

// broadcast publishes a fresh leaderboard snapshot; failures are logged, never
// surfaced, since the triggering operation has already committed.
func (s *GameService) broadcast(ctx context.Context, sessionID string) {
	lb, err := s.Leaderboard(ctx, sessionID)
	if err != nil {
		s.logger.Warn("leaderboard snapshot failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	s.hub.Publish(sessionID, lb)
}
