package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/stratagem/internal/model"
)

// MatchRepo handles match and match_player database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Create inserts a new match in "active" status. Matches start immediately:
// seats and credentials are fixed at creation.
func (r *MatchRepo) Create(ctx context.Context, name, turnDuration string, maxTurns int) (*model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches (name, turn_duration, max_turns)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, status, turn_duration, max_turns, created_at`,
		name, turnDuration, maxTurns,
	).Scan(&m.ID, &m.Name, &m.Status, &m.TurnDuration, &m.MaxTurns, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return &m, nil
}

// SeatPlayer binds an agent to a seat.
func (r *MatchRepo) SeatPlayer(ctx context.Context, matchID, playerID, agentName, civ string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, player_id, agent_name, civ) VALUES ($1, $2, $3, $4)`,
		matchID, playerID, agentName, civ,
	)
	if err != nil {
		return fmt.Errorf("seat player: %w", err)
	}
	return nil
}

// FindByID returns a match by ID with its seated players.
func (r *MatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	var winner, kind sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, status, winner, victory_kind, turn_duration, max_turns, created_at, finished_at
		 FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Status, &winner, &kind, &m.TurnDuration, &m.MaxTurns, &m.CreatedAt, &m.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	m.Winner = winner.String
	m.VictoryKind = kind.String

	players, err := r.listPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Players = players
	return &m, nil
}

// listPlayers returns all seats of a match in seat order.
func (r *MatchRepo) listPlayers(ctx context.Context, matchID string) ([]model.MatchPlayer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, player_id, agent_name, civ, seated_at
		 FROM match_players WHERE match_id = $1 ORDER BY player_id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.MatchPlayer
	for rows.Next() {
		var p model.MatchPlayer
		if err := rows.Scan(&p.MatchID, &p.PlayerID, &p.AgentName, &p.Civ, &p.SeatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// ListActive returns all matches with status 'active', including their players.
func (r *MatchRepo) ListActive(ctx context.Context) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, status, turn_duration, max_turns, created_at
		 FROM matches WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.ID, &m.Name, &m.Status, &m.TurnDuration, &m.MaxTurns, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		players, err := r.listPlayers(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		m.Players = players
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListFinished returns finished matches, most recent first.
func (r *MatchRepo) ListFinished(ctx context.Context) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, status, winner, victory_kind, turn_duration, max_turns, created_at, finished_at
		 FROM matches WHERE status = 'finished'
		 ORDER BY finished_at DESC LIMIT 100`)
	if err != nil {
		return nil, fmt.Errorf("list finished matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var winner, kind sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Status, &winner, &kind, &m.TurnDuration, &m.MaxTurns, &m.CreatedAt, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Winner = winner.String
		m.VictoryKind = kind.String
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SetFinished marks a match as finished. Winner may be empty for stopped matches.
func (r *MatchRepo) SetFinished(ctx context.Context, matchID, winner, victoryKind string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'finished', winner = $1, victory_kind = $2, finished_at = now() WHERE id = $3`,
		nullStr(winner), nullStr(victoryKind), matchID,
	)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// Delete removes a match and all associated data (cascades to players, turns, messages).
func (r *MatchRepo) Delete(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}
