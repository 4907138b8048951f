package model

import (
	"encoding/json"
	"time"
)

// Match represents a hosted match between remote agents.
type Match struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       string        `json:"status"` // active, finished
	Winner       string        `json:"winner,omitempty"`
	VictoryKind  string        `json:"victory_kind,omitempty"`
	TurnDuration string        `json:"turn_duration"`
	MaxTurns     int           `json:"max_turns"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Players      []MatchPlayer `json:"players,omitempty"`
	ReadyCount   int           `json:"ready_count,omitempty"`
}

// MatchPlayer binds an agent to a seat in a match. The seat ID ("p1".."p4")
// is the player identifier the engine uses; agent credentials are JWTs
// minted at match creation and never stored.
type MatchPlayer struct {
	MatchID   string    `json:"match_id"`
	PlayerID  string    `json:"player_id"`
	AgentName string    `json:"agent_name"`
	Civ       string    `json:"civ"`
	SeatedAt  time.Time `json:"seated_at"`
}

// TurnRecord is one row of the append-only turn log. StateBefore is the
// state the turn resolves from; Batches, Result and Digest are filled in
// at resolution and never edited afterwards.
type TurnRecord struct {
	ID          string          `json:"id"`
	MatchID     string          `json:"match_id"`
	Turn        int             `json:"turn"`
	StateBefore json.RawMessage `json:"state_before"`
	StateAfter  json.RawMessage `json:"state_after,omitempty"`
	Batches     json.RawMessage `json:"batches,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Digest      string          `json:"digest,omitempty"`
	Deadline    time.Time       `json:"deadline"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Message represents one entry of the out-of-band diplomacy transcript.
type Message struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient,omitempty"` // empty = public broadcast
	Content   string    `json:"content"`
	Turn      int       `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
}
