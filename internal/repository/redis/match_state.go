package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for live match state.
func stateKey(matchID string) string         { return "match:" + matchID + ":state" }
func batchKey(matchID, player string) string { return "match:" + matchID + ":batch:" + player }
func readyKey(matchID string) string         { return "match:" + matchID + ":ready" }
func timerKey(matchID string) string         { return "match:" + matchID + ":timer" }

// SetMatchState stores the live match state JSON.
func (c *Client) SetMatchState(ctx context.Context, matchID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, stateKey(matchID), []byte(state), 0).Err()
}

// GetMatchState retrieves the live match state JSON.
func (c *Client) GetMatchState(ctx context.Context, matchID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match state: %w", err)
	}
	return json.RawMessage(data), nil
}

// SetBatch stores a player's pending order batch for the current turn.
// A plain SET: resubmission replaces the earlier batch wholesale.
func (c *Client) SetBatch(ctx context.Context, matchID, player string, batch json.RawMessage) error {
	return c.rdb.Set(ctx, batchKey(matchID, player), []byte(batch), 0).Err()
}

// GetBatch retrieves a player's pending batch.
func (c *Client) GetBatch(ctx context.Context, matchID, player string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, batchKey(matchID, player)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return json.RawMessage(data), nil
}

// GetAllBatches retrieves batches from all players that have submitted.
func (c *Client) GetAllBatches(ctx context.Context, matchID string, players []string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage)
	for _, player := range players {
		data, err := c.GetBatch(ctx, matchID, player)
		if err != nil {
			return nil, err
		}
		if data != nil {
			result[player] = data
		}
	}
	return result, nil
}

// MarkReady adds a player to the ready set for the match.
func (c *Client) MarkReady(ctx context.Context, matchID, player string) error {
	return c.rdb.SAdd(ctx, readyKey(matchID), player).Err()
}

// UnmarkReady removes a player from the ready set.
func (c *Client) UnmarkReady(ctx context.Context, matchID, player string) error {
	return c.rdb.SRem(ctx, readyKey(matchID), player).Err()
}

// ReadyCount returns how many players have marked ready.
func (c *Client) ReadyCount(ctx context.Context, matchID string) (int64, error) {
	return c.rdb.SCard(ctx, readyKey(matchID)).Result()
}

// ReadyPlayers returns the set of players that have marked ready.
func (c *Client) ReadyPlayers(ctx context.Context, matchID string) ([]string, error) {
	return c.rdb.SMembers(ctx, readyKey(matchID)).Result()
}

// turnGracePeriod is the extra time after the displayed deadline before
// turn resolution triggers, giving slow agents a few seconds of leeway.
const turnGracePeriod = 5 * time.Second

// SetTimer creates a timer key with a TTL. When the key expires,
// Redis keyspace notifications trigger turn resolution.
// The TTL includes a grace period so the key expires slightly after the displayed deadline.
func (c *Client) SetTimer(ctx context.Context, matchID string, deadline time.Time) error {
	ttl := time.Until(deadline) + turnGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(matchID), deadline.Unix(), ttl).Err()
}

// ClearTimer removes the timer for a match.
func (c *Client) ClearTimer(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, timerKey(matchID)).Err()
}

// ClearTurnData removes all batches, ready status, and timer for a match.
// Called after turn resolution to prepare for the next turn.
func (c *Client) ClearTurnData(ctx context.Context, matchID string, players []string) error {
	keys := []string{readyKey(matchID), timerKey(matchID)}
	for _, player := range players {
		keys = append(keys, batchKey(matchID, player))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// DeleteMatchData removes all Redis data for a match (on match end).
func (c *Client) DeleteMatchData(ctx context.Context, matchID string, players []string) error {
	keys := []string{stateKey(matchID), readyKey(matchID), timerKey(matchID)}
	for _, player := range players {
		keys = append(keys, batchKey(matchID, player))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
