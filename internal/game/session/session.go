package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/velasco/buzzroom/internal/config"
	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/game/monitor"
	"github.com/velasco/buzzroom/internal/game/presence"
	"github.com/velasco/buzzroom/internal/game/question"
	"github.com/velasco/buzzroom/internal/game/round"
	"github.com/velasco/buzzroom/internal/models"
	"github.com/velasco/buzzroom/internal/store"
)

// ErrNotNarrator is returned when a narrator-only action is attempted on a
// replica that is not narrating.
var ErrNotNarrator = errors.New("not the narrator")

// Channel is the session's view of the relay.
type Channel interface {
	Publish(ctx context.Context, env events.Envelope) error
	PublishPresence(ctx context.Context, snap events.PresenceSnapshot) error
	Events() <-chan events.Envelope
	Presence() <-chan events.PresenceSnapshot
	Leave()
}

// Persistence is the durable store surface the session writes through. Every
// call is best-effort: a failure is logged and never rolls back local state.
type Persistence interface {
	RecordBuzz(ctx context.Context, gameID uuid.UUID, questionID string, playerID uuid.UUID) (bool, error)
	UpdateScores(ctx context.Context, scores []models.PlayerScore) error
	UpdateStatus(ctx context.Context, gameID uuid.UUID, status models.GameStatus) error
}

// Config wires a session replica.
type Config struct {
	GameID    uuid.UUID
	Self      models.Player
	Players   []models.Player // join order; becomes the narrator rotation
	Rules     config.Rules
	Clock     clockwork.Clock
	Channel   Channel
	Selector  *question.Selector
	Available []models.Question
	Persist   Persistence // optional
	// Feed is the persisted-buzz change feed, the durable fallback behind
	// the relay's BUZZ fast path. Optional.
	Feed <-chan store.BuzzNotification
}

// Session is one client's replica of a running game: a local state machine,
// buzz queue and presence view, synchronized with every other replica only
// through the relay channel. Local optimistic updates always precede the
// matching remote effects and are never rolled back by their failure.
type Session struct {
	cfg      Config
	machine  *round.Machine
	tracker  *presence.Tracker
	monitor  *monitor.Monitor
	runCtx   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	leaveOne sync.Once
}

// New builds a session replica. Start must be called to go live.
func New(cfg Config) (*Session, error) {
	if cfg.Channel == nil {
		return nil, errors.New("session requires a relay channel")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	s := &Session{
		cfg:     cfg,
		machine: round.NewMachine(cfg.Rules, cfg.Players),
		tracker: presence.NewTracker(cfg.Clock, cfg.Rules.ActiveWindow),
	}
	s.monitor = monitor.NewMonitor(
		cfg.Clock,
		cfg.Rules.MonitorCadence,
		cfg.Rules.MonitorGrace,
		s.tracker,
		s.machine.NarratorID,
		s.handleNarratorDrop,
	)
	return s, nil
}

// Machine exposes the replica's state machine for read access.
func (s *Session) Machine() *round.Machine {
	return s.machine
}

// Presence exposes the replica's presence view.
func (s *Session) Presence() *presence.Tracker {
	return s.tracker
}

// IsNarrator reports whether this replica is currently narrating.
func (s *Session) IsNarrator() bool {
	return s.machine.NarratorID() == s.cfg.Self.ID
}

// Start launches the event loop, heartbeat, disconnection monitor and, on
// the narrator replica, the authoritative countdown. All goroutines stop
// when the context is cancelled or Close is called.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.runCtx = ctx

	s.wg.Add(4)
	go func() {
		defer s.wg.Done()
		s.eventLoop(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.tracker.Track(ctx, s.cfg.Self, s.cfg.Rules.HeartbeatInterval, s.cfg.Channel.PublishPresence)
	}()
	go func() {
		defer s.wg.Done()
		s.monitor.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.timerLoop(ctx)
	}()
}

// Close tears the replica down: channel subscription, heartbeat and every
// timer stop without leaking ticks into the dead session.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.leaveOne.Do(s.cfg.Channel.Leave)
	s.wg.Wait()
}
