package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/stratagem/internal/model"
)

// MessageRepo handles the diplomacy transcript.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a new message. Recipient may be empty for public broadcasts.
func (r *MessageRepo) Create(ctx context.Context, matchID, sender, recipient, content string, turn int) (*model.Message, error) {
	var m model.Message
	var recip sql.NullString
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (match_id, sender, recipient, content, turn)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, match_id, sender, recipient, content, turn, created_at`,
		matchID, sender, nullStr(recipient), content, turn,
	).Scan(&m.ID, &m.MatchID, &m.Sender, &recip, &m.Content, &m.Turn, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	m.Recipient = recip.String
	return &m, nil
}

// ListVisible returns messages a player may read: public broadcasts and
// private messages sent to or from them.
func (r *MessageRepo) ListVisible(ctx context.Context, matchID, playerID string) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, sender, COALESCE(recipient, ''), content, turn, created_at
		 FROM messages
		 WHERE match_id = $1 AND (recipient IS NULL OR sender = $2 OR recipient = $2)
		 ORDER BY created_at`, matchID, playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListAll returns the full transcript, private messages included. Spectator use.
func (r *MessageRepo) ListAll(ctx context.Context, matchID string) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, sender, COALESCE(recipient, ''), content, turn, created_at
		 FROM messages WHERE match_id = $1 ORDER BY created_at`, matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list all messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.MatchID, &m.Sender, &m.Recipient, &m.Content, &m.Turn, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
