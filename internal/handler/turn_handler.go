package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/model"
	"github.com/freeeve/stratagem/internal/repository"
	"github.com/freeeve/stratagem/internal/service"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

// TurnHandler serves the append-only turn log and replay verification.
type TurnHandler struct {
	turnRepo repository.TurnRepository
	turnSvc  *service.TurnService
}

// NewTurnHandler creates a TurnHandler.
func NewTurnHandler(turnRepo repository.TurnRepository, turnSvc *service.TurnService) *TurnHandler {
	return &TurnHandler{turnRepo: turnRepo, turnSvc: turnSvc}
}

// turnSummary is the turn log entry shown to players. The stored state and
// batch blobs are spectator-only: state_before is unfiltered, so handing it
// to a player would bypass fog of war.
type turnSummary struct {
	Turn       int        `json:"turn"`
	Deadline   time.Time  `json:"deadline"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Digest     string     `json:"digest,omitempty"`
}

func summarize(rec *model.TurnRecord) turnSummary {
	return turnSummary{
		Turn:       rec.Turn,
		Deadline:   rec.Deadline,
		ResolvedAt: rec.ResolvedAt,
		Digest:     rec.Digest,
	}
}

// ListTurns handles GET /api/v1/matches/{id}/turns
func (h *TurnHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := matchClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "match token required")
		return
	}

	turns, err := h.turnRepo.ListTurns(r.Context(), matchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if claims.Role == auth.RoleSpectator {
		if turns == nil {
			writeJSON(w, http.StatusOK, []struct{}{})
			return
		}
		writeJSON(w, http.StatusOK, turns)
		return
	}

	summaries := make([]turnSummary, 0, len(turns))
	for i := range turns {
		summaries = append(summaries, summarize(&turns[i]))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// CurrentTurn handles GET /api/v1/matches/{id}/turns/current
func (h *TurnHandler) CurrentTurn(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := matchClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "match token required")
		return
	}

	turn, err := h.turnRepo.CurrentTurn(r.Context(), matchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if turn == nil {
		writeError(w, http.StatusNotFound, "no unresolved turn")
		return
	}

	if claims.Role == auth.RoleSpectator {
		writeJSON(w, http.StatusOK, turn)
		return
	}
	writeJSON(w, http.StatusOK, summarize(turn))
}

// GetTurn handles GET /api/v1/matches/{id}/turns/{turn}. It returns the full
// record with state and batch blobs. Spectator-only.
func (h *TurnHandler) GetTurn(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := matchClaims(r)
	if claims == nil || claims.Role != auth.RoleSpectator {
		writeError(w, http.StatusForbidden, "spectator token required")
		return
	}

	turnNumber, err := strconv.Atoi(r.PathValue("turn"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid turn number")
		return
	}

	rec, err := h.turnRepo.TurnByNumber(r.Context(), matchID, turnNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "turn not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// VerifyTurn handles POST /api/v1/matches/{id}/turns/{turn}/verify. It replays
// the recorded turn and checks the digest. Any match token may verify; the
// response carries no state, only the verdict.
func (h *TurnHandler) VerifyTurn(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := matchClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "match token required")
		return
	}

	turnNumber, err := strconv.Atoi(r.PathValue("turn"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid turn number")
		return
	}

	result, err := h.turnSvc.VerifyTurn(r.Context(), matchID, turnNumber)
	if err != nil {
		if errors.Is(err, stratagem.ErrReplayDivergence) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"turn":     turnNumber,
				"verified": false,
				"error":    err.Error(),
			})
			return
		}
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrTurnNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrTurnNotResolved) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"turn":     turnNumber,
		"verified": true,
		"digest":   result.Digest,
	})
}
