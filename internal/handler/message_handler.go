package handler

import (
	"net/http"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/model"
	"github.com/freeeve/stratagem/internal/repository"
)

// MessageHandler handles the out-of-band diplomacy transcript.
type MessageHandler struct {
	messageRepo repository.MessageRepository
	turnRepo    repository.TurnRepository
	hub         *Hub
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(messageRepo repository.MessageRepository, turnRepo repository.TurnRepository, hub *Hub) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo, turnRepo: turnRepo, hub: hub}
}

// ListMessages handles GET /api/v1/matches/{id}/messages. Players see public
// messages plus their own private traffic; the spectator sees everything.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := matchClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "match token required")
		return
	}

	var messages []model.Message
	var err error
	if claims.Role == auth.RoleSpectator {
		messages, err = h.messageRepo.ListAll(r.Context(), matchID)
	} else {
		messages, err = h.messageRepo.ListVisible(r.Context(), matchID, claims.PlayerID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if messages == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// SendMessage handles POST /api/v1/matches/{id}/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := seatClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "player token required")
		return
	}

	var req struct {
		Recipient string `json:"recipient,omitempty"`
		Content   string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	// Stamp the message with the current turn number
	turnNumber := 0
	if turn, err := h.turnRepo.CurrentTurn(r.Context(), matchID); err == nil && turn != nil {
		turnNumber = turn.Turn
	}

	msg, err := h.messageRepo.Create(r.Context(), matchID, claims.PlayerID, req.Recipient, req.Content, turnNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Broadcast: private messages go to the recipient seat only, public to
	// the whole match. The sender's own connections get a copy either way.
	event := WSEvent{Type: EventMessage, MatchID: matchID, Data: msg}
	if req.Recipient != "" {
		h.hub.BroadcastToSeat(matchID, req.Recipient, event)
		h.hub.BroadcastToSeat(matchID, claims.PlayerID, event)
	} else {
		h.hub.BroadcastToMatch(matchID, event)
	}

	writeJSON(w, http.StatusCreated, msg)
}
