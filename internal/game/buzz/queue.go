package buzz

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velasco/buzzroom/internal/models"
)

// Queue is the per-question buzz queue: players who signaled "I want to
// answer", deduplicated by player and kept in arrival order. The head is the
// player currently answering. A rejected buzz is a no-op, not an error.
type Queue struct {
	mu            sync.Mutex
	narratorID    uuid.UUID
	entries       []models.BuzzEntry
	panelRevealed bool
}

// NewQueue creates a buzz queue for a round narrated by narratorID.
func NewQueue(narratorID uuid.UUID) *Queue {
	return &Queue{narratorID: narratorID}
}

// Buzz appends an entry for the player. Rejected when the caller is the
// narrator or already queued for the current question. The first accepted
// buzz also flips the narrator panel visible.
func (q *Queue) Buzz(playerID uuid.UUID, playerName string, at time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if playerID == q.narratorID {
		return false
	}
	for _, e := range q.entries {
		if e.PlayerID == playerID {
			return false
		}
	}

	q.entries = append(q.entries, models.BuzzEntry{
		PlayerID:   playerID,
		PlayerName: playerName,
		BuzzedAt:   at,
	})
	q.panelRevealed = true
	return true
}

// Resolve removes the entry for the given player, typically after the
// narrator judged their answer. Returns false when no such entry exists.
func (q *Queue) Resolve(playerID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.PlayerID == playerID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Head returns the entry currently answering, or false on an empty queue.
func (q *Queue) Head() (models.BuzzEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return models.BuzzEntry{}, false
	}
	return q.entries[0], true
}

// Entries returns a copy of the queue in arrival order.
func (q *Queue) Entries() []models.BuzzEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.BuzzEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// PanelRevealed reports whether an accepted buzz has made the narrator panel
// visible since the last reset.
func (q *Queue) PanelRevealed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.panelRevealed
}

// Reset clears the queue and hides the panel. Invoked on every question and
// round transition.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	q.panelRevealed = false
}
