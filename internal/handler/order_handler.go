package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/service"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

// OrderHandler handles order submission and ready endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
	turnSvc  *service.TurnService
	hub      *Hub
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService, turnSvc *service.TurnService, hub *Hub) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, turnSvc: turnSvc, hub: hub}
}

// seatClaims returns claims for a player token scoped to the match in the
// request path, nil otherwise. Spectators hold no seat and cannot act.
func seatClaims(r *http.Request) *auth.Claims {
	claims := matchClaims(r)
	if claims == nil || claims.Role != auth.RolePlayer {
		return nil
	}
	return claims
}

// SubmitOrders handles POST /api/v1/matches/{id}/orders
func (h *OrderHandler) SubmitOrders(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := seatClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "player token required")
		return
	}

	var batch stratagem.OrderBatch
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted, orderErrs, err := h.orderSvc.SubmitBatch(r.Context(), matchID, claims.PlayerID, batch)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotActive) || errors.Is(err, service.ErrNoCurrentTurn) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrNotSeated) || errors.Is(err, service.ErrEliminated) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accepted":     accepted,
		"order_errors": orderErrs,
	})
}

// GetOrders handles GET /api/v1/matches/{id}/orders. It returns the caller's own
// pending batch for the current turn.
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := seatClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "player token required")
		return
	}

	batch, err := h.orderSvc.GetBatch(r.Context(), matchID, claims.PlayerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batch == nil {
		writeError(w, http.StatusNotFound, "no orders submitted this turn")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// MarkReady handles POST /api/v1/matches/{id}/ready
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := seatClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "player token required")
		return
	}

	readyCount, totalSeats, err := h.orderSvc.MarkReady(r.Context(), matchID, claims.PlayerID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotActive) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrNotSeated) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}

	// Broadcast ready status
	h.hub.BroadcastToMatch(matchID, WSEvent{
		Type:    EventPlayerReady,
		MatchID: matchID,
		Data: map[string]any{
			"player_id":   claims.PlayerID,
			"ready_count": readyCount,
			"total_seats": totalSeats,
		},
	})

	// If every seat is ready, trigger early resolution.
	// Use a detached context since the request context is cancelled on handler return.
	if int(readyCount) >= totalSeats {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.turnSvc.ResolveTurnEarly(ctx, matchID); err != nil {
				log.Error().Err(err).Str("matchId", matchID).Msg("Early resolution failed")
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ready_count": readyCount,
		"total_seats": totalSeats,
		"all_ready":   int(readyCount) >= totalSeats,
	})
}

// UnmarkReady handles DELETE /api/v1/matches/{id}/ready
func (h *OrderHandler) UnmarkReady(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := seatClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "player token required")
		return
	}

	if err := h.orderSvc.UnmarkReady(r.Context(), matchID, claims.PlayerID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrNotSeated) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}

	// Broadcast updated ready count.
	readyCount, _ := h.turnSvc.ReadyCount(r.Context(), matchID)
	totalSeats := 0
	if match, err := h.orderSvc.MatchRepo().FindByID(r.Context(), matchID); err == nil && match != nil {
		totalSeats = len(match.Players)
	}
	h.hub.BroadcastToMatch(matchID, WSEvent{
		Type:    EventPlayerReady,
		MatchID: matchID,
		Data: map[string]any{
			"player_id":   claims.PlayerID,
			"ready_count": readyCount,
			"total_seats": totalSeats,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"ready_count": readyCount,
		"total_seats": totalSeats,
	})
}
