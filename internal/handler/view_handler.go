package handler

import (
	"errors"
	"net/http"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/service"
)

// ViewHandler serves state projections.
type ViewHandler struct {
	viewSvc *service.ViewService
}

// NewViewHandler creates a ViewHandler.
func NewViewHandler(viewSvc *service.ViewService) *ViewHandler {
	return &ViewHandler{viewSvc: viewSvc}
}

// GetView handles GET /api/v1/matches/{id}/view. A player token gets the
// fog-filtered projection for its seat; the spectator token gets the
// unfiltered one.
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	claims := matchClaims(r)
	if claims == nil {
		writeError(w, http.StatusForbidden, "match token required")
		return
	}

	if claims.Role == auth.RoleSpectator {
		view, err := h.viewSvc.SpectatorView(r.Context(), matchID)
		if err != nil {
			writeViewError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	view, err := h.viewSvc.PlayerView(r.Context(), matchID, claims.PlayerID)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeViewError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrMatchNotFound), errors.Is(err, service.ErrNoCurrentTurn):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotSeated):
		status = http.StatusForbidden
	}
	writeError(w, status, err.Error())
}
