package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"quizlive-service/internal/app"
	"quizlive-service/internal/domain"
)

// HostHandler exposes the host-side and administrative operations over plain
// JSON endpoints. Players use the websocket channel instead.
type HostHandler struct {
	service    *app.GameService
	auth       *Authenticator
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewHostHandler(service *app.GameService, auth *Authenticator, staleAfter time.Duration, logger *zap.Logger) *HostHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostHandler{service: service, auth: auth, staleAfter: staleAfter, logger: logger}
}

// Register mounts the handler's routes on the mux.
func (h *HostHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("POST /sessions/{id}/transition", h.transition)
	mux.HandleFunc("GET /sessions/{id}/leaderboard", h.leaderboard)
	mux.HandleFunc("POST /admin/reap", h.reap)
}

type createSessionRequest struct {
	QuestionSetID string          `json:"questionSetId"`
	Settings      domain.Settings `json:"settings"`
}

func (h *HostHandler) createSession(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrMissingFields)
		return
	}
	session, err := h.service.CreateSession(r.Context(), identity.Subject, req.QuestionSetID, req.Settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type transitionRequest struct {
	Action domain.TransitionAction `json:"action"`
	Reason string                  `json:"reason,omitempty"`
}

func (h *HostHandler) transition(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidAction)
		return
	}
	session, err := h.service.TransitionSession(r.Context(), r.PathValue("id"), identity.Subject, req.Action, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *HostHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

type reapRequest struct {
	StaleThresholdMs int `json:"staleThresholdMs,omitempty"`
}

func (h *HostHandler) reap(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !identity.Admin {
		writeError(w, domain.ErrForbidden)
		return
	}
	var req reapRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	threshold := h.staleAfter
	if req.StaleThresholdMs > 0 {
		threshold = time.Duration(req.StaleThresholdMs) * time.Millisecond
	}
	report, err := h.service.ReapStaleSessions(r.Context(), time.Now(), threshold)
	if err != nil {
		h.logger.Error("reap failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoQuestions):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidNickname), errors.Is(err, domain.ErrInvalidAction), errors.Is(err, domain.ErrMissingFields):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
