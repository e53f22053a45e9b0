package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceRecord is one player's liveness entry. Ephemeral: rebuilt from
// remote snapshots on every sync, never persisted.
type PresenceRecord struct {
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// ActiveWithin reports whether the record counts as active at the given
// instant under the supplied liveness window.
func (p PresenceRecord) ActiveWithin(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastSeenAt) < window
}
