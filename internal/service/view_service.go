package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/freeeve/stratagem/internal/repository"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

// ViewService projects the live match state into per-viewer snapshots.
type ViewService struct {
	matchRepo repository.MatchRepository
	turnRepo  repository.TurnRepository
	cache     repository.MatchCache
}

// NewViewService creates a ViewService.
func NewViewService(matchRepo repository.MatchRepository, turnRepo repository.TurnRepository, cache repository.MatchCache) *ViewService {
	return &ViewService{matchRepo: matchRepo, turnRepo: turnRepo, cache: cache}
}

// PlayerView returns the fog-filtered view for one seat.
func (s *ViewService) PlayerView(ctx context.Context, matchID, playerID string) (*stratagem.PlayerView, error) {
	gs, err := s.loadState(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if _, ok := gs.Players[playerID]; !ok {
		return nil, ErrNotSeated
	}
	return stratagem.ProjectView(gs, stratagem.TournamentMap(), playerID), nil
}

// SpectatorView returns the unfiltered omniscient view.
func (s *ViewService) SpectatorView(ctx context.Context, matchID string) (*stratagem.SpectatorView, error) {
	gs, err := s.loadState(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return stratagem.ProjectSpectator(gs, stratagem.TournamentMap()), nil
}

// loadState reads the live state from the cache, falling back to the state
// stored with the latest turn record. For finished matches the cache is
// cleared, so the fallback also serves historical reads.
func (s *ViewService) loadState(ctx context.Context, matchID string) (*stratagem.GameState, error) {
	raw, err := s.cache.GetMatchState(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("get cached state: %w", err)
	}
	if raw == nil {
		turn, err := s.turnRepo.CurrentTurn(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if turn == nil {
			// Finished match: the last resolved turn carries the final state.
			turns, err := s.turnRepo.ListTurns(ctx, matchID)
			if err != nil || len(turns) == 0 {
				return nil, ErrNoCurrentTurn
			}
			last, err := s.turnRepo.TurnByNumber(ctx, matchID, turns[len(turns)-1].Turn)
			if err != nil || last == nil || last.StateAfter == nil {
				return nil, ErrNoCurrentTurn
			}
			raw = last.StateAfter
		} else {
			raw = turn.StateBefore
		}
	}
	var gs stratagem.GameState
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &gs, nil
}
