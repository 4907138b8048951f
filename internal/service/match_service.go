package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/model"
	"github.com/freeeve/stratagem/internal/repository"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrMatchNotActive = errors.New("match is not active")
	ErrBadSeatCount   = errors.New("matches need 2 to 4 seats")
	ErrInvalidCiv     = errors.New("invalid civilization")
)

// AgentSeat describes one requested seat at match creation.
type AgentSeat struct {
	AgentName string `json:"agent_name"`
	Civ       string `json:"civ,omitempty"` // empty = seat default
}

// MatchCredentials carries the tokens minted at match creation. They are
// returned exactly once and never persisted.
type MatchCredentials struct {
	PlayerTokens   map[string]string `json:"player_tokens"` // seat ID -> JWT
	SpectatorToken string            `json:"spectator_token"`
}

// MatchService handles match lifecycle operations.
type MatchService struct {
	matchRepo repository.MatchRepository
	turnRepo  repository.TurnRepository
	cache     repository.MatchCache
	jwtMgr    *auth.JWTManager
}

// NewMatchService creates a MatchService.
func NewMatchService(matchRepo repository.MatchRepository, turnRepo repository.TurnRepository, cache repository.MatchCache, jwtMgr *auth.JWTManager) *MatchService {
	return &MatchService{matchRepo: matchRepo, turnRepo: turnRepo, cache: cache, jwtMgr: jwtMgr}
}

// CreateMatch creates an active match with all seats filled, builds the
// initial engine state, records turn 1 and seeds the cache and timer.
// Returns the match together with the freshly minted credentials.
func (s *MatchService) CreateMatch(ctx context.Context, name string, seats []AgentSeat, turnDuration time.Duration, maxTurns int) (*model.Match, *MatchCredentials, error) {
	if len(seats) < 2 || len(seats) > 4 {
		return nil, nil, ErrBadSeatCount
	}
	if maxTurns <= 0 {
		maxTurns = stratagem.DefaultMaxTurns
	}

	defaults := stratagem.AllCivs()
	cfg := stratagem.MatchConfig{MaxTurns: maxTurns}
	for i, seat := range seats {
		civ := stratagem.Civ(seat.Civ)
		if seat.Civ == "" {
			civ = defaults[i]
		} else if !civ.Known() {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidCiv, seat.Civ)
		}
		cfg.Players = append(cfg.Players, stratagem.SeatConfig{
			ID:   fmt.Sprintf("p%d", i+1),
			Name: seat.AgentName,
			Civ:  civ,
		})
	}

	w := stratagem.TournamentMap()
	gs, err := stratagem.NewMatchState(w, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("new match state: %w", err)
	}
	stateJSON, err := json.Marshal(gs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal initial state: %w", err)
	}

	match, err := s.matchRepo.Create(ctx, name, turnDuration.String(), maxTurns)
	if err != nil {
		return nil, nil, err
	}
	for i, seat := range cfg.Players {
		if err := s.matchRepo.SeatPlayer(ctx, match.ID, seat.ID, seats[i].AgentName, string(seat.Civ)); err != nil {
			return nil, nil, err
		}
	}

	deadline := time.Now().Add(turnDuration)
	if _, err := s.turnRepo.CreateTurn(ctx, match.ID, 1, stateJSON, deadline); err != nil {
		return nil, nil, fmt.Errorf("create first turn: %w", err)
	}

	if err := s.cache.SetMatchState(ctx, match.ID, stateJSON); err != nil {
		return nil, nil, fmt.Errorf("seed match state: %w", err)
	}
	if err := s.cache.SetTimer(ctx, match.ID, deadline); err != nil {
		return nil, nil, fmt.Errorf("set timer: %w", err)
	}

	creds := &MatchCredentials{PlayerTokens: make(map[string]string, len(cfg.Players))}
	for _, seat := range cfg.Players {
		token, err := s.jwtMgr.GeneratePlayerToken(match.ID, seat.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("mint player token: %w", err)
		}
		creds.PlayerTokens[seat.ID] = token
	}
	creds.SpectatorToken, err = s.jwtMgr.GenerateSpectatorToken(match.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("mint spectator token: %w", err)
	}

	full, err := s.matchRepo.FindByID(ctx, match.ID)
	if err != nil {
		return nil, nil, err
	}
	return full, creds, nil
}

// GetMatch returns a match by ID.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*model.Match, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// ListMatches returns active or finished matches.
func (s *MatchService) ListMatches(ctx context.Context, filter string) ([]model.Match, error) {
	if filter == "finished" {
		return s.matchRepo.ListFinished(ctx)
	}
	return s.matchRepo.ListActive(ctx)
}

// StopMatch ends an active match without a winner.
func (s *MatchService) StopMatch(ctx context.Context, matchID string) (*model.Match, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if match.Status != "active" {
		return nil, ErrMatchNotActive
	}
	if err := s.matchRepo.SetFinished(ctx, matchID, "", "stopped"); err != nil {
		return nil, err
	}
	return s.matchRepo.FindByID(ctx, matchID)
}

// seatIDs returns the seat IDs of a match in seat order.
func seatIDs(match *model.Match) []string {
	var ids []string
	for _, p := range match.Players {
		ids = append(ids, p.PlayerID)
	}
	return ids
}
