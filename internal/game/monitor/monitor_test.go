package monitor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLiveness struct {
	hasData bool
	active  map[uuid.UUID]bool
}

func (f *fakeLiveness) IsActive(id uuid.UUID) bool { return f.active[id] }
func (f *fakeLiveness) HasData() bool              { return f.hasData }

type harness struct {
	clock    *clockwork.FakeClock
	liveness *fakeLiveness
	monitor  *Monitor
	narrator uuid.UUID
	handoffs []uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    clockwork.NewFakeClock(),
		liveness: &fakeLiveness{hasData: true, active: make(map[uuid.UUID]bool)},
		narrator: uuid.New(),
	}
	h.monitor = NewMonitor(
		h.clock,
		2*time.Second,
		5*time.Second,
		h.liveness,
		func() uuid.UUID { return h.narrator },
		func(id uuid.UUID) { h.handoffs = append(h.handoffs, id) },
	)
	return h
}

// tick runs one synchronous monitor evaluation, bypassing the Run loop.
func (h *harness) tick() {
	h.monitor.check()
}

func TestHandoffOnActiveToInactiveEdge(t *testing.T) {
	h := newHarness(t)
	h.liveness.active[h.narrator] = true
	h.monitor.NoteRoundStart(h.clock.Now())
	h.clock.Advance(6 * time.Second)

	h.tick() // narrator seen active
	require.Empty(t, h.handoffs)

	h.liveness.active[h.narrator] = false
	h.tick() // edge: active -> inactive
	require.Len(t, h.handoffs, 1)
	assert.Equal(t, h.narrator, h.handoffs[0])

	h.tick() // still inactive: no second hand-off for the same drop
	assert.Len(t, h.handoffs, 1)
}

func TestGracePeriodSuppressesEvaluation(t *testing.T) {
	h := newHarness(t)
	h.liveness.active[h.narrator] = true
	h.monitor.NoteRoundStart(h.clock.Now())

	h.clock.Advance(3 * time.Second)
	h.tick()
	h.liveness.active[h.narrator] = false
	h.tick()
	// Both checks fell inside the grace window, so no edge was recorded and
	// nothing fires.
	assert.Empty(t, h.handoffs)

	h.clock.Advance(3 * time.Second)
	h.tick() // first real evaluation sees inactive, but there is no edge
	assert.Empty(t, h.handoffs)
}

func TestNoPresenceDataFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.liveness.hasData = false
	h.monitor.NoteRoundStart(h.clock.Now())
	h.clock.Advance(10 * time.Second)

	h.tick()
	h.tick()
	assert.Empty(t, h.handoffs, "no presence feed means no evaluation at all")
}

func TestInactiveFromTheStartNeverDemotes(t *testing.T) {
	h := newHarness(t)
	// Narrator never observed active: there is no edge to fire on.
	h.monitor.NoteRoundStart(h.clock.Now())
	h.clock.Advance(10 * time.Second)

	h.tick()
	h.tick()
	assert.Empty(t, h.handoffs)
}

func TestNarratorChangeResetsEdgeDetector(t *testing.T) {
	h := newHarness(t)
	h.liveness.active[h.narrator] = true
	h.monitor.NoteRoundStart(h.clock.Now())
	h.clock.Advance(6 * time.Second)
	h.tick()

	// Hand-off to a new narrator who is already inactive; the stale "was
	// active" state from the old narrator must not carry over.
	h.narrator = uuid.New()
	h.monitor.NoteRoundStart(h.clock.Now())
	h.clock.Advance(6 * time.Second)
	h.tick()
	assert.Empty(t, h.handoffs)
}
