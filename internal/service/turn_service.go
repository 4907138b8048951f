package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/stratagem/internal/repository"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

var (
	ErrTurnNotFound    = errors.New("turn not found")
	ErrTurnNotResolved = errors.New("turn is not resolved yet")
)

// TurnService orchestrates turn resolution: collecting batches, running the
// engine, appending to the turn log and arming the next deadline.
type TurnService struct {
	matchRepo   repository.MatchRepository
	turnRepo    repository.TurnRepository
	cache       repository.MatchCache
	broadcaster Broadcaster

	// matchLocks prevents concurrent resolution for the same match.
	// Both the keyspace listener and the poller can fire simultaneously;
	// without locking, both resolve the same turn creating duplicate next turns.
	matchLocks sync.Map
}

// NewTurnService creates a TurnService.
func NewTurnService(
	matchRepo repository.MatchRepository,
	turnRepo repository.TurnRepository,
	cache repository.MatchCache,
	broadcaster Broadcaster,
) *TurnService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &TurnService{
		matchRepo:   matchRepo,
		turnRepo:    turnRepo,
		cache:       cache,
		broadcaster: broadcaster,
	}
}

// matchLock returns the mutex for a given match ID.
func (s *TurnService) matchLock(matchID string) *sync.Mutex {
	v, _ := s.matchLocks.LoadOrStore(matchID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// RecoverActiveMatches rehydrates Redis state for all active matches from
// Postgres. Called on server startup to restore timers and match state lost
// during a restart.
func (s *TurnService) RecoverActiveMatches(ctx context.Context) error {
	matches, err := s.matchRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active matches: %w", err)
	}
	if len(matches) == 0 {
		log.Info().Msg("No active matches to recover")
		return nil
	}

	log.Info().Int("count", len(matches)).Msg("Recovering active matches after restart")

	for _, match := range matches {
		turn, err := s.turnRepo.CurrentTurn(ctx, match.ID)
		if err != nil {
			log.Error().Err(err).Str("matchId", match.ID).Msg("Failed to get current turn during recovery")
			continue
		}
		if turn == nil {
			log.Warn().Str("matchId", match.ID).Msg("Active match has no current turn, skipping")
			continue
		}

		// The live state only changes at resolution, so the current turn's
		// state_before is exactly what the cache held before the restart.
		if err := s.cache.SetMatchState(ctx, match.ID, turn.StateBefore); err != nil {
			log.Error().Err(err).Str("matchId", match.ID).Msg("Failed to restore match state")
			continue
		}

		if time.Now().Before(turn.Deadline) {
			if err := s.cache.SetTimer(ctx, match.ID, turn.Deadline); err != nil {
				log.Error().Err(err).Str("matchId", match.ID).Msg("Failed to restore timer")
			}
		}

		log.Info().Str("matchId", match.ID).Int("turn", turn.Turn).
			Time("deadline", turn.Deadline).
			Msg("Recovered match state")
	}

	return nil
}

// ReadyCount returns the number of seats that have marked ready for the current turn.
func (s *TurnService) ReadyCount(ctx context.Context, matchID string) (int, error) {
	count, err := s.cache.ReadyCount(ctx, matchID)
	return int(count), err
}

// ResolveTurn performs the full turn resolution cycle:
// 1. Read state and batches from Redis
// 2. Run the engine (missing batches resolve as empty)
// 3. Append the result to the turn log
// 4. Check for victory or elimination of the match
// 5. Create the next turn and arm its timer
func (s *TurnService) ResolveTurn(ctx context.Context, matchID string) error {
	return s.resolveTurnInternal(ctx, matchID, false)
}

// ResolveTurnEarly is called when all seats have marked ready before the deadline.
func (s *TurnService) ResolveTurnEarly(ctx context.Context, matchID string) error {
	return s.resolveTurnInternal(ctx, matchID, true)
}

func (s *TurnService) resolveTurnInternal(ctx context.Context, matchID string, early bool) error {
	// Per-match lock prevents concurrent resolution from keyspace + poller
	// or from early-resolution goroutines racing with timer expiry.
	mu := s.matchLock(matchID)
	mu.Lock()
	defer mu.Unlock()

	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil || match == nil {
		return fmt.Errorf("find match: %w", err)
	}
	if match.Status != "active" {
		log.Info().Str("matchId", matchID).Str("status", match.Status).Msg("Skipping resolution for non-active match")
		return nil
	}

	turn, err := s.turnRepo.CurrentTurn(ctx, matchID)
	if err != nil || turn == nil {
		return fmt.Errorf("get current turn: %w", err)
	}

	// Guard against resolving a turn whose deadline hasn't passed yet
	// (unless triggered by all seats being ready).
	if !early && time.Now().Before(turn.Deadline) {
		log.Debug().Str("matchId", matchID).Time("deadline", turn.Deadline).Msg("Turn deadline not yet reached, skipping")
		return nil
	}

	log.Info().Str("matchId", matchID).Str("turnId", turn.ID).
		Int("turn", turn.Turn).Bool("early", early).
		Msg("Resolving turn")

	// Load state from Redis (or fallback to Postgres)
	stateJSON, err := s.cache.GetMatchState(ctx, matchID)
	if err != nil {
		return fmt.Errorf("get cached state: %w", err)
	}
	if stateJSON == nil {
		stateJSON = turn.StateBefore
	}

	var gs stratagem.GameState
	if err := json.Unmarshal(stateJSON, &gs); err != nil {
		return fmt.Errorf("unmarshal state: %w", err)
	}

	players := seatIDs(match)
	submitted, batchesJSON, err := s.collectBatches(ctx, matchID, players)
	if err != nil {
		return fmt.Errorf("collect batches: %w", err)
	}

	w := stratagem.TournamentMap()
	result, err := stratagem.ProcessTurn(&gs, w, submitted)
	if err != nil {
		return fmt.Errorf("process turn %d: %w", turn.Turn, err)
	}

	stateAfterJSON, err := json.Marshal(result.State)
	if err != nil {
		return fmt.Errorf("marshal state after: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.turnRepo.ResolveTurn(ctx, turn.ID, stateAfterJSON, batchesJSON, resultJSON, result.Digest); err != nil {
		return fmt.Errorf("resolve turn: %w", err)
	}

	s.broadcaster.BroadcastMatchEvent(matchID, "turn_resolved", map[string]any{
		"turn":         result.Turn,
		"digest":       result.Digest,
		"eliminations": result.Eliminations,
	})

	// Match over?
	if result.Victory.Winner != "" {
		log.Info().Str("matchId", matchID).Str("winner", result.Victory.Winner).
			Str("kind", string(result.Victory.Kind)).Msg("Match won")
		if err := s.matchRepo.SetFinished(ctx, matchID, result.Victory.Winner, string(result.Victory.Kind)); err != nil {
			return fmt.Errorf("set finished: %w", err)
		}
		s.broadcaster.BroadcastMatchEvent(matchID, "match_ended", map[string]any{
			"winner": result.Victory.Winner,
			"kind":   string(result.Victory.Kind),
		})
		return s.cache.DeleteMatchData(ctx, matchID, players)
	}

	// Create next turn
	dur := parseDuration(match.TurnDuration)
	deadline := time.Now().Add(dur)
	if _, err := s.turnRepo.CreateTurn(ctx, matchID, result.Turn+1, stateAfterJSON, deadline); err != nil {
		return fmt.Errorf("create next turn: %w", err)
	}

	// Update Redis: clear old batches/ready, new state, new timer
	if err := s.cache.ClearTurnData(ctx, matchID, players); err != nil {
		return fmt.Errorf("clear turn data: %w", err)
	}
	if err := s.cache.SetMatchState(ctx, matchID, stateAfterJSON); err != nil {
		return fmt.Errorf("set new state: %w", err)
	}
	if err := s.cache.SetTimer(ctx, matchID, deadline); err != nil {
		return fmt.Errorf("set timer: %w", err)
	}

	// Eliminated seats never block the timer; auto-ready them so the match
	// can resolve early once the live seats are done.
	if err := s.autoReadyEliminated(ctx, matchID, result.State, players); err != nil {
		log.Warn().Err(err).Str("matchId", matchID).Msg("Failed to auto-ready eliminated seats")
	}

	log.Info().
		Str("matchId", matchID).
		Int("turn", result.Turn+1).
		Time("deadline", deadline).
		Int("unitCount", len(result.State.Units)).
		Msg("Match advanced to next turn")

	// Broadcast AFTER the new turn is created so agents can fetch it immediately
	s.broadcaster.BroadcastMatchEvent(matchID, "turn_started", map[string]any{
		"turn":     result.Turn + 1,
		"deadline": deadline.Format(time.RFC3339),
	})

	return nil
}

// collectBatches gathers submitted batches from Redis. Seats that submitted
// nothing are simply absent; the engine treats them as empty batches.
// Returns the decoded batches plus the combined JSON stored in the turn log.
func (s *TurnService) collectBatches(ctx context.Context, matchID string, players []string) (map[string]stratagem.OrderBatch, json.RawMessage, error) {
	raw, err := s.cache.GetAllBatches(ctx, matchID, players)
	if err != nil {
		return nil, nil, err
	}

	submitted := make(map[string]stratagem.OrderBatch, len(raw))
	for player, data := range raw {
		var batch stratagem.OrderBatch
		if err := json.Unmarshal(data, &batch); err != nil {
			log.Warn().Str("player", player).Str("matchId", matchID).Msg("Invalid cached batch, treating as absent")
			continue
		}
		submitted[player] = batch
	}

	batchesJSON, err := json.Marshal(submitted)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal batches: %w", err)
	}
	return submitted, batchesJSON, nil
}

// autoReadyEliminated marks dead seats as ready so the match doesn't stall
// waiting for players who can't issue orders.
func (s *TurnService) autoReadyEliminated(ctx context.Context, matchID string, gs *stratagem.GameState, players []string) error {
	for _, player := range players {
		p, ok := gs.Players[player]
		if ok && p.Alive {
			continue
		}
		if err := s.cache.MarkReady(ctx, matchID, player); err != nil {
			return fmt.Errorf("auto-ready %s: %w", player, err)
		}
		log.Info().Str("matchId", matchID).Str("player", player).Msg("Auto-readied eliminated seat")
	}
	return nil
}

// VerifyTurn replays a resolved turn from its recorded inputs and checks the
// output digest. Returns the replayed result, or ErrReplayDivergence wrapped
// if the engine no longer reproduces the recorded outcome. Divergence is
// match-fatal: the match is halted before the error is returned.
func (s *TurnService) VerifyTurn(ctx context.Context, matchID string, turnNumber int) (*stratagem.TurnResult, error) {
	record, err := s.turnRepo.TurnByNumber(ctx, matchID, turnNumber)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrTurnNotFound
	}
	if record.ResolvedAt == nil {
		return nil, ErrTurnNotResolved
	}

	var gs stratagem.GameState
	if err := json.Unmarshal(record.StateBefore, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal state before: %w", err)
	}
	submitted := make(map[string]stratagem.OrderBatch)
	if len(record.Batches) > 0 {
		if err := json.Unmarshal(record.Batches, &submitted); err != nil {
			return nil, fmt.Errorf("unmarshal batches: %w", err)
		}
	}

	w := stratagem.TournamentMap()
	result, err := stratagem.ReplayTurn(&gs, w, submitted, record.Digest)
	if errors.Is(err, stratagem.ErrReplayDivergence) {
		s.haltDivergedMatch(ctx, matchID, turnNumber)
	}
	return result, err
}

// haltDivergedMatch ends a match whose replay log can no longer be
// reproduced. Replay integrity is a core guarantee; continuing on
// unverifiable state would be worse than stopping. The match finishes with
// no winner, the timer and cached state are cleared so no further turn
// resolves, and subscribers are told why.
func (s *TurnService) haltDivergedMatch(ctx context.Context, matchID string, turnNumber int) {
	mu := s.matchLock(matchID)
	mu.Lock()
	defer mu.Unlock()

	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil || match == nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to load match for divergence halt")
		return
	}
	if match.Status != "active" {
		return
	}

	log.Error().Str("matchId", matchID).Int("turn", turnNumber).
		Msg("Replay divergence detected, halting match")

	if err := s.matchRepo.SetFinished(ctx, matchID, "", "divergence"); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to finish diverged match")
		return
	}
	s.broadcaster.BroadcastMatchEvent(matchID, "match_ended", map[string]any{
		"winner": "",
		"reason": "divergence",
		"turn":   turnNumber,
	})
	if err := s.cache.DeleteMatchData(ctx, matchID, seatIDs(match)); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to clear diverged match data")
	}
}

// CleanupStoppedMatch broadcasts the match_ended event and clears cached data.
func (s *TurnService) CleanupStoppedMatch(ctx context.Context, matchID string) error {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil || match == nil {
		return fmt.Errorf("find match: %w", err)
	}
	s.broadcaster.BroadcastMatchEvent(matchID, "match_ended", map[string]any{
		"winner": "",
		"reason": "stopped",
	})
	return s.cache.DeleteMatchData(ctx, matchID, seatIDs(match))
}

// parseDuration converts stored Go duration strings like "60s" or "5m" to
// time.Duration, defaulting to one minute.
func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
