package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quizlive-service/internal/app"
	"quizlive-service/internal/domain"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, subject string, admin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if admin {
		claims["admin"] = true
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newHostServer(t *testing.T) (*httptest.Server, *app.GameService) {
	t.Helper()
	service, _ := newTestService(t)
	handler := NewHostHandler(service, NewAuthenticator(testSecret), 2*time.Hour, nil)
	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestCreateSessionEndpoint(t *testing.T) {
	server, _ := newHostServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/sessions", mintToken(t, "host-2", false), createSessionRequest{QuestionSetID: "set-1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var sess domain.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.HostID != "host-2" || sess.Status != domain.StatusLobby || len(sess.JoinCode) != 6 {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestCreateSessionRequiresToken(t *testing.T) {
	server, _ := newHostServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/sessions", "", createSessionRequest{QuestionSetID: "set-1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestTransitionEndpointEnforcesHost(t *testing.T) {
	server, service := newHostServer(t)

	sess, err := service.CreateSession(context.Background(), "host-1", "set-1", domain.Settings{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/sessions/"+sess.ID+"/transition", mintToken(t, "not-host", false), transitionRequest{Action: domain.ActionStart})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/"+sess.ID+"/transition", mintToken(t, "host-1", false), transitionRequest{Action: domain.ActionStart})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var started domain.Session
	_ = json.NewDecoder(resp.Body).Decode(&started)
	if started.Status != domain.StatusLive {
		t.Fatalf("expected live, got %s", started.Status)
	}
}

func TestTransitionEndpointMapsErrors(t *testing.T) {
	server, service := newHostServer(t)

	sess, _ := service.CreateSession(context.Background(), "host-1", "", domain.Settings{})

	// Empty question set: 422.
	resp := doJSON(t, http.MethodPost, server.URL+"/sessions/"+sess.ID+"/transition", mintToken(t, "host-1", false), transitionRequest{Action: domain.ActionStart})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	// Unknown verb: 400.
	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/"+sess.ID+"/transition", mintToken(t, "host-1", false), transitionRequest{Action: "rewind"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	// Unknown session: 404.
	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/nope/transition", mintToken(t, "host-1", false), transitionRequest{Action: domain.ActionStart})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestReapEndpointRequiresAdmin(t *testing.T) {
	server, service := newHostServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/admin/reap", mintToken(t, "host-1", false), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	// Age a session past the default threshold, then sweep as admin.
	sess, _ := service.CreateSession(context.Background(), "host-1", "set-1", domain.Settings{})
	_, _ = service.TransitionSession(context.Background(), sess.ID, "host-1", domain.ActionStart, "")
	time.Sleep(5 * time.Millisecond)

	resp = doJSON(t, http.MethodPost, server.URL+"/admin/reap", mintToken(t, "ops", true), reapRequest{StaleThresholdMs: 1})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var report domain.ReapReport
	_ = json.NewDecoder(resp.Body).Decode(&report)
	if report.StaleFound == 0 {
		t.Fatalf("expected the aged session to be reaped, got %+v", report)
	}
}
