package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freeeve/stratagem/internal/model"
	"github.com/freeeve/stratagem/internal/repository"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

var (
	ErrNoCurrentTurn = errors.New("no unresolved turn")
	ErrNotSeated     = errors.New("you do not hold a seat in this match")
	ErrEliminated    = errors.New("eliminated players cannot submit orders")
)

// OrderService handles order batch submission and ready marking.
type OrderService struct {
	matchRepo repository.MatchRepository
	turnRepo  repository.TurnRepository
	cache     repository.MatchCache
}

// NewOrderService creates an OrderService.
func NewOrderService(matchRepo repository.MatchRepository, turnRepo repository.TurnRepository, cache repository.MatchCache) *OrderService {
	return &OrderService{matchRepo: matchRepo, turnRepo: turnRepo, cache: cache}
}

// MatchRepo returns the match repository for use by handlers.
func (s *OrderService) MatchRepo() repository.MatchRepository {
	return s.matchRepo
}

// SubmitBatch validates a player's order batch against the live state and
// stores the accepted subset for the current turn. Resubmission replaces
// the earlier batch wholesale and clears the player's ready flag. Rejected
// orders are reported back; accepted siblings still take effect.
func (s *OrderService) SubmitBatch(ctx context.Context, matchID, playerID string, batch stratagem.OrderBatch) (*stratagem.OrderBatch, []stratagem.OrderError, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if match == nil {
		return nil, nil, ErrMatchNotFound
	}
	if match.Status != "active" {
		return nil, nil, ErrMatchNotActive
	}
	if !holdsSeat(match, playerID) {
		return nil, nil, ErrNotSeated
	}

	gs, err := s.loadState(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if p, ok := gs.Players[playerID]; ok && !p.Alive {
		return nil, nil, ErrEliminated
	}

	batch.Player = playerID
	w := stratagem.TournamentMap()
	accepted, orderErrs := stratagem.ValidateBatch(gs, w, batch)

	batchJSON, err := json.Marshal(accepted)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal batch: %w", err)
	}
	if err := s.cache.SetBatch(ctx, matchID, playerID, batchJSON); err != nil {
		return nil, nil, fmt.Errorf("cache batch: %w", err)
	}
	// A fresh submission supersedes any earlier ready signal.
	if err := s.cache.UnmarkReady(ctx, matchID, playerID); err != nil {
		return nil, nil, fmt.Errorf("unmark ready: %w", err)
	}

	return &accepted, orderErrs, nil
}

// GetBatch returns the player's pending batch for the current turn, or nil.
func (s *OrderService) GetBatch(ctx context.Context, matchID, playerID string) (*stratagem.OrderBatch, error) {
	raw, err := s.cache.GetBatch(ctx, matchID, playerID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var batch stratagem.OrderBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal batch: %w", err)
	}
	return &batch, nil
}

// MarkReady marks a seat as done for the turn and returns the ready count
// and the total number of seats.
func (s *OrderService) MarkReady(ctx context.Context, matchID, playerID string) (int64, int, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return 0, 0, err
	}
	if match == nil {
		return 0, 0, ErrMatchNotFound
	}
	if match.Status != "active" {
		return 0, 0, ErrMatchNotActive
	}
	if !holdsSeat(match, playerID) {
		return 0, 0, ErrNotSeated
	}

	if err := s.cache.MarkReady(ctx, matchID, playerID); err != nil {
		return 0, 0, fmt.Errorf("mark ready: %w", err)
	}
	readyCount, err := s.cache.ReadyCount(ctx, matchID)
	if err != nil {
		return 0, 0, fmt.Errorf("ready count: %w", err)
	}
	return readyCount, len(match.Players), nil
}

// UnmarkReady removes a seat's ready flag.
func (s *OrderService) UnmarkReady(ctx context.Context, matchID, playerID string) error {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match == nil {
		return ErrMatchNotFound
	}
	if !holdsSeat(match, playerID) {
		return ErrNotSeated
	}
	return s.cache.UnmarkReady(ctx, matchID, playerID)
}

// loadState reads the live state from the cache, falling back to the current
// turn's state_before when the cache is cold.
func (s *OrderService) loadState(ctx context.Context, matchID string) (*stratagem.GameState, error) {
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
			return nil, ErrNoCurrentTurn
		}
		raw = turn.StateBefore
	}
	var gs stratagem.GameState
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &gs, nil
}

// holdsSeat reports whether the player ID names a seat in the match.
func holdsSeat(match *model.Match, playerID string) bool {
	for _, p := range match.Players {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}
