package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freeeve/stratagem/internal/model"
)

type mockMatchRepo struct {
	matches map[string]*model.Match
	players map[string][]model.MatchPlayer
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{
		matches: make(map[string]*model.Match),
		players: make(map[string][]model.MatchPlayer),
	}
}

func (m *mockMatchRepo) Create(_ context.Context, name, turnDuration string, maxTurns int) (*model.Match, error) {
	match := &model.Match{
		ID:           fmt.Sprintf("match-%d", len(m.matches)+1),
		Name:         name,
		Status:       "active",
		TurnDuration: turnDuration,
		MaxTurns:     maxTurns,
		CreatedAt:    time.Now(),
	}
	m.matches[match.ID] = match
	return match, nil
}

func (m *mockMatchRepo) SeatPlayer(_ context.Context, matchID, playerID, agentName, civ string) error {
	m.players[matchID] = append(m.players[matchID], model.MatchPlayer{
		MatchID:   matchID,
		PlayerID:  playerID,
		AgentName: agentName,
		Civ:       civ,
		SeatedAt:  time.Now(),
	})
	return nil
}

func (m *mockMatchRepo) FindByID(_ context.Context, id string) (*model.Match, error) {
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *match
	cp.Players = m.players[id]
	return &cp, nil
}

func (m *mockMatchRepo) ListActive(_ context.Context) ([]model.Match, error) {
	var result []model.Match
	for _, match := range m.matches {
		if match.Status == "active" {
			cp := *match
			cp.Players = m.players[match.ID]
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockMatchRepo) ListFinished(_ context.Context) ([]model.Match, error) {
	var result []model.Match
	for _, match := range m.matches {
		if match.Status == "finished" {
			cp := *match
			cp.Players = m.players[match.ID]
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockMatchRepo) SetFinished(_ context.Context, matchID, winner, victoryKind string) error {
	if match, ok := m.matches[matchID]; ok {
		match.Status = "finished"
		match.Winner = winner
		match.VictoryKind = victoryKind
		now := time.Now()
		match.FinishedAt = &now
	}
	return nil
}

func (m *mockMatchRepo) Delete(_ context.Context, matchID string) error {
	delete(m.matches, matchID)
	delete(m.players, matchID)
	return nil
}

type mockTurnRepo struct {
	turns map[string]*model.TurnRecord
	seq   int
}

func newMockTurnRepo() *mockTurnRepo {
	return &mockTurnRepo{turns: make(map[string]*model.TurnRecord)}
}

func (m *mockTurnRepo) CreateTurn(_ context.Context, matchID string, turn int, stateBefore json.RawMessage, deadline time.Time) (*model.TurnRecord, error) {
	m.seq++
	t := &model.TurnRecord{
		ID:          fmt.Sprintf("turn-%d", m.seq),
		MatchID:     matchID,
		Turn:        turn,
		StateBefore: stateBefore,
		Deadline:    deadline,
		CreatedAt:   time.Now(),
	}
	m.turns[t.ID] = t
	return t, nil
}

func (m *mockTurnRepo) CurrentTurn(_ context.Context, matchID string) (*model.TurnRecord, error) {
	var latest *model.TurnRecord
	for _, t := range m.turns {
		if t.MatchID == matchID && t.ResolvedAt == nil {
			if latest == nil || t.Turn > latest.Turn {
				latest = t
			}
		}
	}
	return latest, nil
}

func (m *mockTurnRepo) TurnByNumber(_ context.Context, matchID string, turn int) (*model.TurnRecord, error) {
	for _, t := range m.turns {
		if t.MatchID == matchID && t.Turn == turn {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTurnRepo) ListTurns(_ context.Context, matchID string) ([]model.TurnRecord, error) {
	var result []model.TurnRecord
	for _, t := range m.turns {
		if t.MatchID == matchID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockTurnRepo) ResolveTurn(_ context.Context, turnID string, stateAfter, batches, result json.RawMessage, digest string) error {
	if t, ok := m.turns[turnID]; ok {
		t.StateAfter = stateAfter
		t.Batches = batches
		t.Result = result
		t.Digest = digest
		now := time.Now()
		t.ResolvedAt = &now
	}
	return nil
}

func (m *mockTurnRepo) ListExpired(_ context.Context) ([]model.TurnRecord, error) {
	return nil, nil
}

type mockMessageRepo struct {
	messages []model.Message
	seq      int
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{}
}

func (m *mockMessageRepo) Create(_ context.Context, matchID, sender, recipient, content string, turn int) (*model.Message, error) {
	m.seq++
	msg := model.Message{
		ID:        fmt.Sprintf("msg-%d", m.seq),
		MatchID:   matchID,
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Turn:      turn,
		CreatedAt: time.Now(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockMessageRepo) ListVisible(_ context.Context, matchID, playerID string) ([]model.Message, error) {
	var result []model.Message
	for _, msg := range m.messages {
		if msg.MatchID != matchID {
			continue
		}
		if msg.Recipient == "" || msg.Sender == playerID || msg.Recipient == playerID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockMessageRepo) ListAll(_ context.Context, matchID string) ([]model.Message, error) {
	var result []model.Message
	for _, msg := range m.messages {
		if msg.MatchID == matchID {
			result = append(result, msg)
		}
	}
	return result, nil
}

// mockCache implements repository.MatchCache for testing.
type mockCache struct {
	states  map[string]json.RawMessage
	batches map[string]json.RawMessage // key: "matchID:player"
	ready   map[string]map[string]bool // matchID -> set of players
	timers  map[string]time.Time
}

func newMockCache() *mockCache {
	return &mockCache{
		states:  make(map[string]json.RawMessage),
		batches: make(map[string]json.RawMessage),
		ready:   make(map[string]map[string]bool),
		timers:  make(map[string]time.Time),
	}
}

func (c *mockCache) SetMatchState(_ context.Context, matchID string, state json.RawMessage) error {
	c.states[matchID] = state
	return nil
}

func (c *mockCache) GetMatchState(_ context.Context, matchID string) (json.RawMessage, error) {
	return c.states[matchID], nil
}

func (c *mockCache) SetBatch(_ context.Context, matchID, player string, batch json.RawMessage) error {
	c.batches[matchID+":"+player] = batch
	return nil
}

func (c *mockCache) GetBatch(_ context.Context, matchID, player string) (json.RawMessage, error) {
	return c.batches[matchID+":"+player], nil
}

func (c *mockCache) GetAllBatches(_ context.Context, matchID string, players []string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage)
	for _, player := range players {
		if data, ok := c.batches[matchID+":"+player]; ok {
			result[player] = data
		}
	}
	return result, nil
}

func (c *mockCache) MarkReady(_ context.Context, matchID, player string) error {
	if c.ready[matchID] == nil {
		c.ready[matchID] = make(map[string]bool)
	}
	c.ready[matchID][player] = true
	return nil
}

func (c *mockCache) UnmarkReady(_ context.Context, matchID, player string) error {
	if c.ready[matchID] != nil {
		delete(c.ready[matchID], player)
	}
	return nil
}

func (c *mockCache) ReadyCount(_ context.Context, matchID string) (int64, error) {
	return int64(len(c.ready[matchID])), nil
}

func (c *mockCache) ReadyPlayers(_ context.Context, matchID string) ([]string, error) {
	var result []string
	for player := range c.ready[matchID] {
		result = append(result, player)
	}
	return result, nil
}

func (c *mockCache) SetTimer(_ context.Context, matchID string, deadline time.Time) error {
	c.timers[matchID] = deadline
	return nil
}

func (c *mockCache) ClearTimer(_ context.Context, matchID string) error {
	delete(c.timers, matchID)
	return nil
}

func (c *mockCache) ClearTurnData(_ context.Context, matchID string, players []string) error {
	delete(c.ready, matchID)
	delete(c.timers, matchID)
	for _, player := range players {
		delete(c.batches, matchID+":"+player)
	}
	return nil
}

func (c *mockCache) DeleteMatchData(_ context.Context, matchID string, players []string) error {
	delete(c.states, matchID)
	delete(c.ready, matchID)
	delete(c.timers, matchID)
	for _, player := range players {
		delete(c.batches, matchID+":"+player)
	}
	return nil
}
