package gateway

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/game/relay"
	"github.com/velasco/buzzroom/internal/store"
)

// framePublisher is the slice of the relay the consumer publishes through.
type framePublisher interface {
	PublishFrame(gameID uuid.UUID, kind relay.FrameKind, frame []byte) error
}

// Consumer bridges the relay and the WebSocket pools. Relay frames fan out
// to the attached browsers of their game; browser frames feed back onto the
// relay after a sanity check, so a browser client participates in the game
// protocol exactly like a native replica.
type Consumer struct {
	relay     *relay.Relay
	publisher framePublisher
	manager   *ConnectionManager
	sub       *nats.Subscription
}

// NewConsumer wires a consumer to the given relay and connection manager.
func NewConsumer(r *relay.Relay, manager *ConnectionManager) *Consumer {
	return &Consumer{relay: r, publisher: r, manager: manager}
}

// Start subscribes to every game's relay traffic and blocks until the
// context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.relay.SubscribeAll(func(gameID uuid.UUID, kind relay.FrameKind, frame []byte) {
		c.manager.Broadcast(gameID, frame)
	})
	if err != nil {
		return err
	}
	c.sub = sub

	log.Info().Msg("gateway relay consumer started")
	<-ctx.Done()

	if err := c.sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Msg("failed to unsubscribe gateway consumer")
	}
	log.Info().Msg("gateway relay consumer stopped")
	return nil
}

// clientFrame is the shape sniff for browser frames. Envelopes carry a type,
// presence snapshots carry a player_id and no type.
type clientFrame struct {
	Type     events.EventType `json:"type"`
	PlayerID uuid.UUID        `json:"player_id"`
}

// Ingest validates a browser frame and forwards it onto the relay. Protocol
// envelopes go to the game's event subject, presence snapshots to its
// presence subject; anything else is dropped.
func (c *Consumer) Ingest(gameID uuid.UUID, frame []byte) {
	var peek clientFrame
	if err := json.Unmarshal(frame, &peek); err != nil {
		log.Warn().Err(err).Str("game_id", gameID.String()).Msg("dropping malformed client frame")
		return
	}

	kind := relay.FrameKindEvent
	switch {
	case peek.Type != "":
		var env events.Envelope
		if err := json.Unmarshal(frame, &env); err != nil || env.GameID != gameID.String() {
			log.Warn().
				Str("game_id", gameID.String()).
				Str("frame_game_id", env.GameID).
				Msg("dropping client frame for wrong game")
			return
		}
	case peek.PlayerID != uuid.Nil:
		kind = relay.FrameKindPresence
	default:
		log.Warn().Str("game_id", gameID.String()).Msg("dropping unrecognized client frame")
		return
	}

	if err := c.publisher.PublishFrame(gameID, kind, frame); err != nil {
		log.Warn().Err(err).Str("game_id", gameID.String()).Msg("failed to forward client frame")
	}
}

// BridgeFeed forwards persisted-buzz notifications to the browsers of their
// game. The frame stays on the pool side of the gateway: native replicas
// already hold their own feed subscriptions, so re-publishing to the relay
// would only duplicate traffic.
func (c *Consumer) BridgeFeed(ctx context.Context, notifications <-chan store.BuzzNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			env, err := events.NewEnvelope(n.GameID, events.EventTypeBuzz, events.BuzzPayload{
				PlayerID:   n.PlayerID,
				PlayerName: n.PlayerName,
				// The feed row carries no index; consumers match on the
				// question ID.
				QuestionIndex: -1,
				QuestionID:    n.QuestionID,
				BuzzedAt:      n.BuzzedAt,
			}, n.BuzzedAt)
			if err != nil {
				log.Warn().Err(err).Str("game_id", n.GameID.String()).Msg("failed to frame feed buzz")
				continue
			}
			frame, err := json.Marshal(env)
			if err != nil {
				log.Warn().Err(err).Str("game_id", n.GameID.String()).Msg("failed to frame feed buzz")
				continue
			}
			c.manager.Broadcast(n.GameID, frame)
		}
	}
}
