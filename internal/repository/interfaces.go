package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/stratagem/internal/model"
)

// MatchRepository defines match and seat data operations.
type MatchRepository interface {
	Create(ctx context.Context, name, turnDuration string, maxTurns int) (*model.Match, error)
	SeatPlayer(ctx context.Context, matchID, playerID, agentName, civ string) error
	FindByID(ctx context.Context, id string) (*model.Match, error)
	ListActive(ctx context.Context) ([]model.Match, error)
	ListFinished(ctx context.Context) ([]model.Match, error)
	SetFinished(ctx context.Context, matchID, winner, victoryKind string) error
	Delete(ctx context.Context, matchID string) error
}

// TurnRepository defines operations on the append-only turn log.
type TurnRepository interface {
	CreateTurn(ctx context.Context, matchID string, turn int, stateBefore json.RawMessage, deadline time.Time) (*model.TurnRecord, error)
	CurrentTurn(ctx context.Context, matchID string) (*model.TurnRecord, error)
	TurnByNumber(ctx context.Context, matchID string, turn int) (*model.TurnRecord, error)
	ListTurns(ctx context.Context, matchID string) ([]model.TurnRecord, error)
	ResolveTurn(ctx context.Context, turnID string, stateAfter, batches, result json.RawMessage, digest string) error
	ListExpired(ctx context.Context) ([]model.TurnRecord, error)
}

// MessageRepository defines diplomacy transcript operations.
type MessageRepository interface {
	Create(ctx context.Context, matchID, sender, recipient, content string, turn int) (*model.Message, error)
	ListVisible(ctx context.Context, matchID, playerID string) ([]model.Message, error)
	ListAll(ctx context.Context, matchID string) ([]model.Message, error)
}

// MatchCache defines live match state operations (Redis).
type MatchCache interface {
	SetMatchState(ctx context.Context, matchID string, state json.RawMessage) error
	GetMatchState(ctx context.Context, matchID string) (json.RawMessage, error)
	SetBatch(ctx context.Context, matchID, playerID string, batch json.RawMessage) error
	GetBatch(ctx context.Context, matchID, playerID string) (json.RawMessage, error)
	GetAllBatches(ctx context.Context, matchID string, players []string) (map[string]json.RawMessage, error)
	MarkReady(ctx context.Context, matchID, playerID string) error
	UnmarkReady(ctx context.Context, matchID, playerID string) error
	ReadyCount(ctx context.Context, matchID string) (int64, error)
	ReadyPlayers(ctx context.Context, matchID string) ([]string, error)
	SetTimer(ctx context.Context, matchID string, deadline time.Time) error
	ClearTimer(ctx context.Context, matchID string) error
	ClearTurnData(ctx context.Context, matchID string, players []string) error
	DeleteMatchData(ctx context.Context, matchID string, players []string) error
}
