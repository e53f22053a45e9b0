package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Liveness is the view of player presence the monitor needs.
type Liveness interface {
	IsActive(playerID uuid.UUID) bool
	HasData() bool
}

// NarratorFunc returns the current narrator, or uuid.Nil when no round is
// running.
type NarratorFunc func() uuid.UUID

// HandoffFunc triggers the narrator hand-off when the active narrator drops.
// The caller ends the round early with the dropped narrator excluded from
// the rotation.
type HandoffFunc func(narratorID uuid.UUID)

// Monitor watches the current narrator's liveness on a fixed cadence and
// fires a hand-off on an active-to-inactive edge. Each round gets a grace
// delay before the first evaluation so presence tracking can stabilize after
// a transition. With no presence data at all the monitor evaluates nothing
// that cycle: it fails open and never falsely demotes.
type Monitor struct {
	clock    clockwork.Clock
	cadence  time.Duration
	grace    time.Duration
	presence Liveness
	narrator NarratorFunc
	handoff  HandoffFunc

	mu           sync.Mutex
	roundStarted time.Time
	prevNarrator uuid.UUID
	prevActive   bool
	prevValid    bool
}

// NewMonitor creates a monitor. Run must be called to start watching.
func NewMonitor(clock clockwork.Clock, cadence, grace time.Duration, presence Liveness, narrator NarratorFunc, handoff HandoffFunc) *Monitor {
	return &Monitor{
		clock:    clock,
		cadence:  cadence,
		grace:    grace,
		presence: presence,
		narrator: narrator,
		handoff:  handoff,
	}
}

// NoteRoundStart resets the grace window and the edge detector. Call it on
// every round transition.
func (m *Monitor) NoteRoundStart(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roundStarted = at
	m.prevValid = false
}

// Run evaluates on every cadence tick until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.check()
		}
	}
}

func (m *Monitor) check() {
	narrator, dropped := m.evaluate()
	if !dropped {
		return
	}
	log.Info().
		Str("narrator_id", narrator.String()).
		Msg("narrator went inactive, triggering hand-off")
	m.handoff(narrator)
}

// evaluate runs one liveness check and reports whether the current narrator
// just dropped.
func (m *Monitor) evaluate() (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.roundStarted.IsZero() || m.clock.Now().Sub(m.roundStarted) < m.grace {
		return uuid.Nil, false
	}
	if !m.presence.HasData() {
		return uuid.Nil, false
	}

	narrator := m.narrator()
	if narrator == uuid.Nil {
		return uuid.Nil, false
	}
	if narrator != m.prevNarrator {
		m.prevNarrator = narrator
		m.prevValid = false
	}

	active := m.presence.IsActive(narrator)
	wasActive := m.prevValid && m.prevActive
	m.prevActive = active
	m.prevValid = true

	return narrator, wasActive && !active
}
