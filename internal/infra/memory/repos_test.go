package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlive-service/internal/domain"
)

func TestSessionRepoJoinCodeLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()

	_, err := repo.Create(ctx, domain.Session{ID: "s1", JoinCode: "ABC234", Status: domain.StatusLobby, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.FindByJoinCode(ctx, "ABC234"); err != nil {
		t.Fatalf("expected live code to resolve: %v", err)
	}
	inUse, _ := repo.CodeInUse(ctx, "ABC234")
	if !inUse {
		t.Fatalf("expected code in use")
	}

	// Terminal sessions release their code.
	if _, err := repo.Update(ctx, "s1", func(cur *domain.Session) error {
		cur.Status = domain.StatusEnded
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := repo.FindByJoinCode(ctx, "ABC234"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ended session invisible to join, got %v", err)
	}
	inUse, _ = repo.CodeInUse(ctx, "ABC234")
	if inUse {
		t.Fatalf("expected code released after end")
	}
}

func TestSessionRepoUpdateAborts(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()
	_, _ = repo.Create(ctx, domain.Session{ID: "s1", Status: domain.StatusLobby})

	boom := errors.New("boom")
	if _, err := repo.Update(ctx, "s1", func(cur *domain.Session) error {
		cur.Status = domain.StatusLive
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected apply error passthrough, got %v", err)
	}

	stored, _ := repo.Get(ctx, "s1")
	if stored.Status != domain.StatusLobby {
		t.Fatalf("aborted update leaked: %+v", stored)
	}
}

func TestSessionRepoListStale(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo()
	now := time.Now()

	_, _ = repo.Create(ctx, domain.Session{ID: "old", Status: domain.StatusLive, CreatedAt: now.Add(-3 * time.Hour)})
	_, _ = repo.Create(ctx, domain.Session{ID: "new", Status: domain.StatusLive, CreatedAt: now})
	_, _ = repo.Create(ctx, domain.Session{ID: "done", Status: domain.StatusEnded, CreatedAt: now.Add(-3 * time.Hour)})

	stale, err := repo.ListStale(ctx, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("expected only the old live session, got %+v", stale)
	}
}

func TestPlayerRepoNicknameCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepo()
	_, _ = repo.Create(ctx, domain.Player{ID: "p1", SessionID: "s1", Nickname: "Alex"})

	found, err := repo.FindByNickname(ctx, "s1", "alex")
	if err != nil || found.ID != "p1" {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
	if _, err := repo.FindByNickname(ctx, "s2", "Alex"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("nickname leaked across sessions: %v", err)
	}
}

func TestAnswerRepoCreateIsKeyedOnTriple(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswerRepo()

	first := domain.Answer{ID: "a1", SessionID: "s1", PlayerID: "p1", QuestionIndex: 0, Points: 800}
	stored, created, err := repo.Create(ctx, first)
	if err != nil || !created || stored.ID != "a1" {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	dup := domain.Answer{ID: "a2", SessionID: "s1", PlayerID: "p1", QuestionIndex: 0, Points: 100}
	stored, created, err = repo.Create(ctx, dup)
	if err != nil {
		t.Fatalf("dup create: %v", err)
	}
	if created || stored.ID != "a1" || stored.Points != 800 {
		t.Fatalf("duplicate overwrote stored answer: created=%v %+v", created, stored)
	}

	// A different question index is a fresh fact.
	_, created, err = repo.Create(ctx, domain.Answer{ID: "a3", SessionID: "s1", PlayerID: "p1", QuestionIndex: 1})
	if err != nil || !created {
		t.Fatalf("distinct triple rejected: created=%v err=%v", created, err)
	}
}
