package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent over WebSocket.
const (
	EventTurnStarted  = "turn_started"
	EventTurnResolved = "turn_resolved"
	EventPlayerReady  = "player_ready"
	EventMatchEnded   = "match_ended"
	EventMessage      = "message"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Data    any    `json:"data"`
}

// WSConn wraps a WebSocket connection with its match-scoped identity.
// Tokens are minted per match, so every connection belongs to exactly one
// match channel for its whole lifetime.
type WSConn struct {
	conn     *websocket.Conn
	matchID  string
	playerID string // empty for spectators
	role     string
	send     chan []byte
}

// Hub manages WebSocket connections and match-channel membership.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	matches     map[string]map[*WSConn]bool // matchID -> set of connections
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		matches:     make(map[string]map[*WSConn]bool),
	}
}

// Register adds a connection to the hub and its match channel.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
	if h.matches[c.matchID] == nil {
		h.matches[c.matchID] = make(map[*WSConn]bool)
	}
	h.matches[c.matchID][c] = true
}

// Unregister removes a connection from the hub and its match channel.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)
	if conns, ok := h.matches[c.matchID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.matches, c.matchID)
		}
	}
	close(c.send)
}

// BroadcastToMatch sends an event to all connections in a match channel.
func (h *Hub) BroadcastToMatch(matchID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.matches[matchID] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("playerId", c.playerID).Str("matchId", matchID).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// BroadcastToSeat sends an event to one seat's connections. Spectator
// connections in the same match receive it too: the spectator sees the full
// transcript, private traffic included.
func (h *Hub) BroadcastToSeat(matchID, playerID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.matches[matchID] {
		if c.playerID != playerID && c.role != "spectator" {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// MatchSubscriberCount returns the number of connections in a match channel.
func (h *Hub) MatchSubscriberCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}
