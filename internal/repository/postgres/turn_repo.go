package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freeeve/stratagem/internal/model"
)

// TurnRepo handles the append-only turn log.
type TurnRepo struct {
	db *sql.DB
}

// NewTurnRepo creates a TurnRepo.
func NewTurnRepo(db *sql.DB) *TurnRepo {
	return &TurnRepo{db: db}
}

// CreateTurn inserts the next pending turn for a match.
func (r *TurnRepo) CreateTurn(ctx context.Context, matchID string, turn int, stateBefore json.RawMessage, deadline time.Time) (*model.TurnRecord, error) {
	var t model.TurnRecord
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO turns (match_id, turn, state_before, deadline)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, match_id, turn, state_before, deadline, created_at`,
		matchID, turn, stateBefore, deadline,
	).Scan(&t.ID, &t.MatchID, &t.Turn, &t.StateBefore, &t.Deadline, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create turn: %w", err)
	}
	return &t, nil
}

// CurrentTurn returns the latest unresolved turn for a match.
func (r *TurnRepo) CurrentTurn(ctx context.Context, matchID string) (*model.TurnRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, match_id, turn, state_before, state_after, batches, result, digest, deadline, resolved_at, created_at
		 FROM turns WHERE match_id = $1 AND resolved_at IS NULL
		 ORDER BY turn DESC LIMIT 1`, matchID)
	t, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// TurnByNumber returns one turn of the log.
func (r *TurnRepo) TurnByNumber(ctx context.Context, matchID string, turn int) (*model.TurnRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, match_id, turn, state_before, state_after, batches, result, digest, deadline, resolved_at, created_at
		 FROM turns WHERE match_id = $1 AND turn = $2`, matchID, turn)
	t, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListTurns returns all turns for a match in order. State and result blobs
// are omitted; fetch individual turns for replay data.
func (r *TurnRepo) ListTurns(ctx context.Context, matchID string) ([]model.TurnRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, turn, digest, deadline, resolved_at, created_at
		 FROM turns WHERE match_id = $1 ORDER BY turn`, matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []model.TurnRecord
	for rows.Next() {
		var t model.TurnRecord
		var digest sql.NullString
		if err := rows.Scan(&t.ID, &t.MatchID, &t.Turn, &digest, &t.Deadline, &t.ResolvedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Digest = digest.String
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// ResolveTurn marks a turn as resolved and stores the submitted batches,
// the full TurnResult and its digest.
func (r *TurnRepo) ResolveTurn(ctx context.Context, turnID string, stateAfter, batches, result json.RawMessage, digest string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE turns SET state_after = $1, batches = $2, result = $3, digest = $4, resolved_at = now() WHERE id = $5`,
		stateAfter, batches, result, digest, turnID,
	)
	if err != nil {
		return fmt.Errorf("resolve turn: %w", err)
	}
	return nil
}

// ListExpired returns the latest unresolved turn per active match where the
// deadline has passed.
func (r *TurnRepo) ListExpired(ctx context.Context) ([]model.TurnRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (t.match_id) t.id, t.match_id, t.turn, t.state_before, t.deadline, t.created_at
		 FROM turns t
		 JOIN matches m ON m.id = t.match_id
		 WHERE t.resolved_at IS NULL AND t.deadline < now() AND m.status = 'active'
		 ORDER BY t.match_id, t.turn DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expired turns: %w", err)
	}
	defer rows.Close()

	var turns []model.TurnRecord
	for rows.Next() {
		var t model.TurnRecord
		if err := rows.Scan(&t.ID, &t.MatchID, &t.Turn, &t.StateBefore, &t.Deadline, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expired turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (*model.TurnRecord, error) {
	var t model.TurnRecord
	var stateAfter, batches, result, digest sql.NullString
	err := row.Scan(&t.ID, &t.MatchID, &t.Turn, &t.StateBefore, &stateAfter, &batches, &result, &digest, &t.Deadline, &t.ResolvedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if stateAfter.Valid {
		t.StateAfter = json.RawMessage(stateAfter.String)
	}
	if batches.Valid {
		t.Batches = json.RawMessage(batches.String)
	}
	if result.Valid {
		t.Result = json.RawMessage(result.String)
	}
	t.Digest = digest.String
	return &t, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
