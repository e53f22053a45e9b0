package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoActiveSession is returned when a client has nothing to recover; the
// caller redirects to the session entry point.
var ErrNoActiveSession = errors.New("no active session")

// SessionState is the crash/refresh recovery snapshot. It is not part of the
// protocol's correctness: a client that loses it simply rejoins by PIN.
type SessionState struct {
	GameStarted  bool      `json:"game_started"`
	GameID       uuid.UUID `json:"game_id"`
	Pin          string    `json:"pin"`
	SelectedGame string    `json:"selected_game"`
	PlayerID     uuid.UUID `json:"player_id"`
}

// Cache stores recovery snapshots in Redis, one per player, with a TTL so
// abandoned sessions age out on their own.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a recovery cache. A zero ttl defaults to two hours.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = 2 * time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func key(playerID uuid.UUID) string {
	return "recovery:" + playerID.String()
}

// Save writes the player's snapshot.
func (c *Cache) Save(ctx context.Context, state SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := c.client.Set(ctx, key(state.PlayerID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// Load fetches the player's snapshot, or ErrNoActiveSession.
func (c *Cache) Load(ctx context.Context, playerID uuid.UUID) (*SessionState, error) {
	data, err := c.client.Get(ctx, key(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// Clear drops the player's snapshot. Invoked on clean leave and on game end.
func (c *Cache) Clear(ctx context.Context, playerID uuid.UUID) error {
	if err := c.client.Del(ctx, key(playerID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}
