package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/service"
)

// MatchHandler handles match lifecycle endpoints.
type MatchHandler struct {
	matchSvc        *service.MatchService
	turnSvc         *service.TurnService
	defaultDuration time.Duration
	defaultMaxTurns int
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matchSvc *service.MatchService, turnSvc *service.TurnService, defaultDuration time.Duration, defaultMaxTurns int) *MatchHandler {
	return &MatchHandler{
		matchSvc:        matchSvc,
		turnSvc:         turnSvc,
		defaultDuration: defaultDuration,
		defaultMaxTurns: defaultMaxTurns,
	}
}

// matchClaims returns the caller's claims when they are scoped to the match
// in the request path, nil otherwise. A token for one match grants nothing
// in another.
func matchClaims(r *http.Request) *auth.Claims {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.MatchID != r.PathValue("id") {
		return nil
	}
	return claims
}

// CreateMatch handles POST /api/v1/matches. This is the one unauthenticated
// write: credentials do not exist until the match does. The response carries
// the per-seat and spectator tokens exactly once; they are never retrievable
// again.
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Seats []struct {
			AgentName string `json:"agent_name"`
			Civ       string `json:"civ,omitempty"`
		} `json:"seats"`
		TurnDuration string `json:"turn_duration,omitempty"`
		MaxTurns     int    `json:"max_turns,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	duration := h.defaultDuration
	if req.TurnDuration != "" {
		d, err := time.ParseDuration(req.TurnDuration)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid turn_duration")
			return
		}
		duration = d
	}
	maxTurns := req.MaxTurns
	if maxTurns == 0 {
		maxTurns = h.defaultMaxTurns
	}

	seats := make([]service.AgentSeat, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = service.AgentSeat{AgentName: s.AgentName, Civ: s.Civ}
	}

	match, creds, err := h.matchSvc.CreateMatch(r.Context(), req.Name, seats, duration, maxTurns)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrBadSeatCount) || errors.Is(err, service.ErrInvalidCiv) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"match":           match,
		"player_tokens":   creds.PlayerTokens,
		"spectator_token": creds.SpectatorToken,
	})
}

// ListMatches handles GET /api/v1/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	matches, err := h.matchSvc.ListMatches(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if matches == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	match, err := h.matchSvc.GetMatch(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, service.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if match.Status == "active" {
		if count, err := h.turnSvc.ReadyCount(r.Context(), matchID); err == nil {
			match.ReadyCount = count
		}
	}

	writeJSON(w, http.StatusOK, match)
}

// StopMatch handles POST /api/v1/matches/{id}/stop. Only the spectator token
// (held by whoever organized the match) can stop it; seated agents cannot
// end a match they are losing.
func (h *MatchHandler) StopMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := matchClaims(r)
	if claims == nil || claims.Role != auth.RoleSpectator {
		writeError(w, http.StatusForbidden, "spectator token required")
		return
	}

	match, err := h.matchSvc.StopMatch(r.Context(), matchID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotActive) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	if err := h.turnSvc.CleanupStoppedMatch(r.Context(), matchID); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to cleanup stopped match")
	}

	writeJSON(w, http.StatusOK, match)
}
