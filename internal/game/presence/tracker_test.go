package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/models"
)

func TestActiveWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock, time.Minute)
	player := uuid.New()

	assert.False(t, tracker.IsActive(player), "unknown player is inactive")
	assert.False(t, tracker.HasData())

	tracker.Observe(events.PresenceSnapshot{
		PlayerID:   player,
		PlayerName: "bob",
		LastSeenAt: clock.Now(),
	})
	assert.True(t, tracker.HasData())
	assert.True(t, tracker.IsActive(player))

	clock.Advance(59 * time.Second)
	assert.True(t, tracker.IsActive(player))

	clock.Advance(2 * time.Second)
	assert.False(t, tracker.IsActive(player), "player expires past the window")
}

func TestLastSnapshotWins(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock, time.Minute)
	player := uuid.New()

	tracker.Observe(events.PresenceSnapshot{PlayerID: player, LastSeenAt: clock.Now()})
	clock.Advance(90 * time.Second)
	assert.False(t, tracker.IsActive(player))

	// A fresh snapshot fully replaces the stale record.
	tracker.Observe(events.PresenceSnapshot{PlayerID: player, LastSeenAt: clock.Now()})
	assert.True(t, tracker.IsActive(player))
	assert.Len(t, tracker.ActivePlayers(), 1)
}

func TestTrackHeartbeats(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock, time.Minute)
	self := models.Player{ID: uuid.New(), Name: "alice"}

	var mu sync.Mutex
	var sent []events.PresenceSnapshot
	publish := func(_ context.Context, snap events.PresenceSnapshot) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, snap)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tracker.Track(ctx, self, 30*time.Second, publish)
	}()

	// Initial announce on join.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 1
	}, time.Second, time.Millisecond)

	clock.BlockUntilContext(ctx, 1)
	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 2
	}, time.Second, time.Millisecond)

	assert.True(t, tracker.IsActive(self.ID), "own heartbeats feed the local view")

	cancel()
	<-done
}
