package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlive-service/internal/app"
	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/memory"
)

type testEnv struct {
	service  *app.GameService
	sessions *memory.SessionRepo
	players  *memory.PlayerRepo
	answers  *memory.AnswerRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := memory.NewSessionRepo()
	players := memory.NewPlayerRepo()
	answers := memory.NewAnswerRepo()
	bank := memory.NewStaticBank(map[string][]domain.Question{
		"set-1": {
			{Prompt: "Select the right option", Options: []string{"Wrong", "Right"}, Answer: "Right"},
			{Prompt: "And again", Options: []string{"Yes", "No"}, Answer: "Yes"},
		},
	}, nil)
	service := app.NewGameService(sessions, players, answers, memory.NewCachedBank(bank, time.Minute), nil)
	return &testEnv{service: service, sessions: sessions, players: players, answers: answers}
}

func (e *testEnv) createStarted(t *testing.T, ctx context.Context) domain.Session {
	t.Helper()
	sess, err := e.service.CreateSession(ctx, "host-1", "set-1", domain.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sess, err = e.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionStart, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return sess
}

func TestCreateSessionOpensLobby(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sess, err := env.service.CreateSession(ctx, "host-1", "set-1", domain.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Status != domain.StatusLobby {
		t.Fatalf("expected lobby, got %s", sess.Status)
	}
	if sess.CurrentQuestion != -1 {
		t.Fatalf("expected question index -1, got %d", sess.CurrentQuestion)
	}
	if len(sess.JoinCode) != 6 {
		t.Fatalf("expected 6-char join code, got %q", sess.JoinCode)
	}
}

func TestCreateSessionRejectsUnknownSet(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.service.CreateSession(ctx, "host-1", "set-missing", domain.Settings{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.service.CreateSession(ctx, "", "set-1", domain.Settings{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestStartRequiresQuestions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sess, err := env.service.CreateSession(ctx, "host-1", "", domain.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionStart, ""); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions, got %v", err)
	}

	// A failed start must not mutate state.
	after, err := env.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Status != domain.StatusLobby || after.CurrentQuestion != -1 {
		t.Fatalf("failed start mutated session: %+v", after)
	}
}

func TestTransitionRejectsNonHost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sess, _ := env.service.CreateSession(ctx, "host-1", "set-1", domain.Settings{})
	if _, err := env.service.TransitionSession(ctx, sess.ID, "host-2", domain.ActionStart, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := env.service.TransitionSession(ctx, sess.ID, "", domain.ActionStart, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestStateMachineEdges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sess := env.createStarted(t, ctx)

	if sess.Status != domain.StatusLive || sess.CurrentQuestion != 0 {
		t.Fatalf("expected live at question 0, got %s/%d", sess.Status, sess.CurrentQuestion)
	}

	// nextQuestion from lobby is not an edge.
	lobby, _ := env.service.CreateSession(ctx, "host-1", "set-1", domain.Settings{})
	if _, err := env.service.TransitionSession(ctx, lobby.ID, "host-1", domain.ActionNextQuestion, ""); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected invalid action from lobby, got %v", err)
	}

	sess, err := env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionShowLeaderboard, "")
	if err != nil || sess.Status != domain.StatusIntermission {
		t.Fatalf("expected intermission, got %s (%v)", sess.Status, err)
	}

	sess, err = env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionNextQuestion, "")
	if err != nil || sess.Status != domain.StatusLive || sess.CurrentQuestion != 1 {
		t.Fatalf("expected live at question 1, got %s/%d (%v)", sess.Status, sess.CurrentQuestion, err)
	}

	// Advancing past the last question ends the session.
	sess, err = env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionNextQuestion, "")
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if sess.Status != domain.StatusEnded || sess.EndReason != domain.EndReasonCompleted {
		t.Fatalf("expected ended/%s, got %s/%s", domain.EndReasonCompleted, sess.Status, sess.EndReason)
	}

	// Ended is terminal.
	if _, err := env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionEnd, ""); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected invalid action on ended session, got %v", err)
	}
}

func TestConflictWhileTransitioning(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sess := env.createStarted(t, ctx)

	// Simulate a crashed transition that left the lock set.
	if _, err := env.sessions.Update(ctx, sess.ID, func(cur *domain.Session) error {
		cur.Transitioning = true
		return nil
	}); err != nil {
		t.Fatalf("set lock: %v", err)
	}

	if _, err := env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionNextQuestion, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionShowLeaderboard, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// end cuts through a stuck lock.
	ended, err := env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionEnd, "")
	if err != nil {
		t.Fatalf("end through lock: %v", err)
	}
	if ended.Status != domain.StatusEnded || ended.Transitioning {
		t.Fatalf("expected ended with lock cleared, got %+v", ended)
	}
	if ended.EndReason != domain.EndReasonHost {
		t.Fatalf("expected default end reason, got %q", ended.EndReason)
	}
}

// raceSessionRepo lets a test interleave another writer between two
// repository updates.
type raceSessionRepo struct {
	*memory.SessionRepo
	beforeUpdate func()
}

func (r *raceSessionRepo) Update(ctx context.Context, id string, apply func(*domain.Session) error) (domain.Session, error) {
	if hook := r.beforeUpdate; hook != nil {
		hook()
	}
	return r.SessionRepo.Update(ctx, id, apply)
}

func TestEndDuringNextQuestionStaysEnded(t *testing.T) {
	ctx := context.Background()
	sessions := &raceSessionRepo{SessionRepo: memory.NewSessionRepo()}
	bank := memory.NewStaticBank(map[string][]domain.Question{
		"set-1": {
			{Prompt: "Select the right option", Options: []string{"Wrong", "Right"}, Answer: "Right"},
			{Prompt: "And again", Options: []string{"Yes", "No"}, Answer: "Yes"},
		},
	}, nil)
	service := app.NewGameService(sessions, memory.NewPlayerRepo(), memory.NewAnswerRepo(), memory.NewCachedBank(bank, time.Minute), nil)

	sess, err := service.CreateSession(ctx, "host-1", "set-1", domain.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionStart, ""); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The host ends the session between the advance claiming the lock and
	// writing the new state.
	calls := 0
	sessions.beforeUpdate = func() {
		calls++
		if calls != 2 {
			return
		}
		sessions.beforeUpdate = nil
		if _, err := service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionEnd, ""); err != nil {
			t.Fatalf("end through lock: %v", err)
		}
	}

	if _, err := service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionNextQuestion, ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	after, err := sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Status != domain.StatusEnded || after.Transitioning {
		t.Fatalf("ended session resurrected: %+v", after)
	}
	if after.EndReason != domain.EndReasonHost || after.EndedAt == nil {
		t.Fatalf("end record lost: %+v", after)
	}
}

func TestQuestionIndexMonotonic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sess := env.createStarted(t, ctx)

	last := sess.CurrentQuestion
	for {
		next, err := env.service.TransitionSession(ctx, sess.ID, "host-1", domain.ActionNextQuestion, "")
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if next.Status == domain.StatusEnded {
			break
		}
		if next.CurrentQuestion < last {
			t.Fatalf("question index went backwards: %d -> %d", last, next.CurrentQuestion)
		}
		last = next.CurrentQuestion
	}
}
