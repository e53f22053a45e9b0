package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/models"
)

// PublishFunc sends this replica's presence snapshot to the shared channel.
type PublishFunc func(ctx context.Context, snap events.PresenceSnapshot) error

// Tracker maintains the live set of connected players from heartbeat
// snapshots. Records are ephemeral: each incoming snapshot replaces the
// player's previous one (last snapshot wins), nothing is persisted, and a
// player counts as active only while their last snapshot is younger than the
// liveness window.
type Tracker struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	window  time.Duration
	records map[uuid.UUID]models.PresenceRecord
}

// NewTracker creates a tracker with the given liveness window.
func NewTracker(clock clockwork.Clock, window time.Duration) *Tracker {
	return &Tracker{
		clock:   clock,
		window:  window,
		records: make(map[uuid.UUID]models.PresenceRecord),
	}
}

// Observe applies a remote snapshot, replacing any previous record for the
// player.
func (t *Tracker) Observe(snap events.PresenceSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[snap.PlayerID] = models.PresenceRecord{
		PlayerID:   snap.PlayerID,
		PlayerName: snap.PlayerName,
		LastSeenAt: snap.LastSeenAt,
	}
}

// IsActive reports whether the player's last snapshot is inside the liveness
// window. Unknown players are inactive.
func (t *Tracker) IsActive(playerID uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[playerID]
	if !ok {
		return false
	}
	return rec.ActiveWithin(t.clock.Now(), t.window)
}

// HasData reports whether any snapshot has arrived yet. The disconnection
// monitor fails open while this is false.
func (t *Tracker) HasData() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records) > 0
}

// ActivePlayers returns the records currently inside the liveness window.
func (t *Tracker) ActivePlayers() []models.PresenceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock.Now()
	var out []models.PresenceRecord
	for _, rec := range t.records {
		if rec.ActiveWithin(now, t.window) {
			out = append(out, rec)
		}
	}
	return out
}

// Track announces the player once immediately and then on every heartbeat
// interval until the context is cancelled. Publish failures are logged and
// skipped; the next heartbeat is the retry.
func (t *Tracker) Track(ctx context.Context, self models.Player, interval time.Duration, publish PublishFunc) {
	send := func() {
		snap := events.PresenceSnapshot{
			PlayerID:   self.ID,
			PlayerName: self.Name,
			LastSeenAt: t.clock.Now(),
		}
		t.Observe(snap)
		if err := publish(ctx, snap); err != nil {
			log.Warn().
				Err(err).
				Str("player_id", self.ID.String()).
				Msg("failed to publish presence heartbeat")
		}
	}

	send()
	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			send()
		}
	}
}
