package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/game/events"
)

// Config holds NATS connection settings for the relay.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	SubjectPrefix string
}

// DefaultConfig returns the default relay configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		SubjectPrefix: "buzzroom.game",
	}
}

// Relay is the process-wide NATS handle behind every session channel. It is
// created once, passed explicitly to whoever needs a channel, and owns no
// per-game state: per-game subscriptions live on SessionChannel so teardown
// stays scoped to the session that opened them.
type Relay struct {
	nc     *nats.Conn
	config Config
}

// NewRelay connects to NATS.
func NewRelay(cfg Config) (*Relay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Relay{nc: nc, config: cfg}, nil
}

// Close drops the NATS connection. Open session channels stop receiving.
func (r *Relay) Close() {
	if r.nc != nil {
		r.nc.Close()
	}
}

func (r *Relay) eventSubject(gameID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.events", r.config.SubjectPrefix, gameID)
}

func (r *Relay) presenceSubject(gameID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.presence", r.config.SubjectPrefix, gameID)
}

// FrameKind tags which per-game subject a raw frame came from.
type FrameKind string

const (
	FrameKindEvent    FrameKind = "events"
	FrameKindPresence FrameKind = "presence"
)

// FrameHandler receives raw frames for any game on the relay.
type FrameHandler func(gameID uuid.UUID, kind FrameKind, frame []byte)

// SubscribeAll delivers every game's raw frames to the handler. Used by the
// gateway to fan relay traffic out to browser clients without decoding it.
// The caller owns the returned subscription.
func (r *Relay) SubscribeAll(handler FrameHandler) (*nats.Subscription, error) {
	subject := r.config.SubjectPrefix + ".>"
	sub, err := r.nc.Subscribe(subject, func(msg *nats.Msg) {
		gameID, kind, ok := r.parseSubject(msg.Subject)
		if !ok {
			return
		}
		handler(gameID, kind, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// parseSubject splits "<prefix>.<gameID>.<kind>" back into its parts.
func (r *Relay) parseSubject(subject string) (uuid.UUID, FrameKind, bool) {
	rest, ok := strings.CutPrefix(subject, r.config.SubjectPrefix+".")
	if !ok {
		return uuid.Nil, "", false
	}
	idPart, kindPart, ok := strings.Cut(rest, ".")
	if !ok {
		return uuid.Nil, "", false
	}
	gameID, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", false
	}
	switch FrameKind(kindPart) {
	case FrameKindEvent, FrameKindPresence:
		return gameID, FrameKind(kindPart), true
	}
	return uuid.Nil, "", false
}

// PublishFrame forwards an already-encoded frame onto a game's subject. The
// gateway uses it to relay browser-originated envelopes verbatim.
func (r *Relay) PublishFrame(gameID uuid.UUID, kind FrameKind, frame []byte) error {
	var subject string
	switch kind {
	case FrameKindPresence:
		subject = r.presenceSubject(gameID)
	default:
		subject = r.eventSubject(gameID)
	}
	if err := r.nc.Publish(subject, frame); err != nil {
		return fmt.Errorf("failed to publish frame to %s: %w", subject, err)
	}
	return nil
}

// SessionChannel is one game's view of the relay: protocol envelopes plus
// presence snapshots, best-effort in both directions. Slow consumers drop
// messages rather than block the relay; every consumer is idempotent against
// loss and reordering anyway.
type SessionChannel struct {
	gameID      uuid.UUID
	relay       *Relay
	eventSub    *nats.Subscription
	presenceSub *nats.Subscription
	eventsCh    chan events.Envelope
	presenceCh  chan events.PresenceSnapshot
}

// Join subscribes to a game's subjects and returns its channel. The caller
// owns the channel and must Leave it on teardown.
func (r *Relay) Join(gameID uuid.UUID) (*SessionChannel, error) {
	sc := &SessionChannel{
		gameID:     gameID,
		relay:      r,
		eventsCh:   make(chan events.Envelope, 256),
		presenceCh: make(chan events.PresenceSnapshot, 64),
	}

	eventSub, err := r.nc.Subscribe(r.eventSubject(gameID), func(msg *nats.Msg) {
		var env events.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Warn().Err(err).Str("game_id", gameID.String()).Msg("discarding malformed envelope")
			return
		}
		select {
		case sc.eventsCh <- env:
		default:
			log.Warn().Str("game_id", gameID.String()).Msg("event channel full, dropping message")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to game events: %w", err)
	}
	sc.eventSub = eventSub

	presenceSub, err := r.nc.Subscribe(r.presenceSubject(gameID), func(msg *nats.Msg) {
		var snap events.PresenceSnapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			log.Warn().Err(err).Str("game_id", gameID.String()).Msg("discarding malformed presence snapshot")
			return
		}
		select {
		case sc.presenceCh <- snap:
		default:
		}
	})
	if err != nil {
		eventSub.Unsubscribe()
		return nil, fmt.Errorf("failed to subscribe to game presence: %w", err)
	}
	sc.presenceSub = presenceSub

	log.Info().Str("game_id", gameID.String()).Msg("joined relay channel")
	return sc, nil
}

// Publish sends a protocol envelope to every replica in the game, the sender
// included.
func (sc *SessionChannel) Publish(_ context.Context, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := sc.relay.nc.Publish(sc.relay.eventSubject(sc.gameID), data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", env.Type, err)
	}
	return nil
}

// PublishPresence sends a heartbeat snapshot.
func (sc *SessionChannel) PublishPresence(_ context.Context, snap events.PresenceSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal presence snapshot: %w", err)
	}
	if err := sc.relay.nc.Publish(sc.relay.presenceSubject(sc.gameID), data); err != nil {
		return fmt.Errorf("failed to publish presence snapshot: %w", err)
	}
	return nil
}

// Events returns the inbound protocol envelope stream.
func (sc *SessionChannel) Events() <-chan events.Envelope {
	return sc.eventsCh
}

// Presence returns the inbound presence snapshot stream.
func (sc *SessionChannel) Presence() <-chan events.PresenceSnapshot {
	return sc.presenceCh
}

// Leave releases the game's subscriptions. Idempotent.
func (sc *SessionChannel) Leave() {
	if sc.eventSub != nil {
		if err := sc.eventSub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("game_id", sc.gameID.String()).Msg("failed to unsubscribe events")
		}
		sc.eventSub = nil
	}
	if sc.presenceSub != nil {
		if err := sc.presenceSub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("game_id", sc.gameID.String()).Msg("failed to unsubscribe presence")
		}
		sc.presenceSub = nil
	}
	log.Info().Str("game_id", sc.gameID.String()).Msg("left relay channel")
}
