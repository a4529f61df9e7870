package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizlive-service/internal/app"
)

// PresenceTracker records which players hold an open connection. Nil-safe via
// noopPresence; the Redis implementation lives in infra.
type PresenceTracker interface {
	Connected(ctx context.Context, sessionID, playerID string)
	Disconnected(ctx context.Context, sessionID, playerID string)
	Online(ctx context.Context, sessionID string) int
}

type noopPresence struct{}

func (noopPresence) Connected(context.Context, string, string)    {}
func (noopPresence) Disconnected(context.Context, string, string) {}
func (noopPresence) Online(context.Context, string) int           { return 0 }

// WSHandler is the player-facing channel: join on connect, answers inbound,
// leaderboard snapshots outbound.
type WSHandler struct {
	service  *app.GameService
	presence PresenceTracker
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(service *app.GameService, presence PresenceTracker, logger *zap.Logger) *WSHandler {
	if presence == nil {
		presence = noopPresence{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service:  service,
		presence: presence,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex  int    `json:"questionIndex"`
	Selection      string `json:"selection"`
	ResponseTimeMs int    `json:"responseTimeMs"`
}

type answerResult struct {
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	TotalPoints   int    `json:"totalPoints"`
	Explanation   string `json:"explanation,omitempty"`
}

type joinedPayload struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	PlayerID  string `json:"playerId"`
	Nickname  string `json:"nickname"`
	Online    int    `json:"online"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the player's session: one writer
// goroutine owns the connection, a second forwards hub updates, the request
// goroutine reads until the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	joinCode := r.URL.Query().Get("joinCode")
	nickname := r.URL.Query().Get("nickname")
	learnerID := r.URL.Query().Get("learnerId")
	if joinCode == "" || nickname == "" {
		http.Error(w, "missing joinCode or nickname", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, player, err := h.service.JoinSession(r.Context(), joinCode, nickname, learnerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "session not found or ended"}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), session.ID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	h.presence.Connected(r.Context(), session.ID, player.ID)
	defer func() {
		// Keep the player record so the nickname can reconnect later.
		h.presence.Disconnected(context.Background(), session.ID, player.ID)
		h.service.MarkDisconnected(context.Background(), player.ID)
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		SessionID: session.ID,
		Status:    string(session.Status),
		PlayerID:  player.ID,
		Nickname:  player.Nickname,
		Online:    h.presence.Online(r.Context(), session.ID),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			answer, points, correct, err := h.service.SubmitAnswer(r.Context(), session.ID, player.ID, payload.QuestionIndex, payload.Selection, payload.ResponseTimeMs)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			result := answerResult{
				QuestionIndex: answer.QuestionIndex,
				Correct:       correct,
				Points:        points,
			}
			if current, err := h.service.Leaderboard(r.Context(), session.ID); err == nil {
				for _, entry := range current.Entries {
					if entry.PlayerID == player.ID {
						result.TotalPoints = entry.TotalPoints
					}
				}
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
