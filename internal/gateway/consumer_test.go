package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/game/relay"
	"github.com/velasco/buzzroom/internal/store"
)

type capturedFrame struct {
	gameID uuid.UUID
	kind   relay.FrameKind
	frame  []byte
}

type fakePublisher struct {
	frames []capturedFrame
}

func (f *fakePublisher) PublishFrame(gameID uuid.UUID, kind relay.FrameKind, frame []byte) error {
	f.frames = append(f.frames, capturedFrame{gameID: gameID, kind: kind, frame: frame})
	return nil
}

func TestIngestRoutesEnvelopeToEventSubject(t *testing.T) {
	pub := &fakePublisher{}
	c := &Consumer{publisher: pub}

	gameID := uuid.New()
	env, err := events.NewEnvelope(gameID, events.EventTypeBuzz, events.BuzzPayload{
		PlayerID:   uuid.New(),
		QuestionID: "q-1",
	}, time.Now())
	require.NoError(t, err)
	frame, err := json.Marshal(env)
	require.NoError(t, err)

	c.Ingest(gameID, frame)

	require.Len(t, pub.frames, 1)
	assert.Equal(t, gameID, pub.frames[0].gameID)
	assert.Equal(t, relay.FrameKindEvent, pub.frames[0].kind)
}

func TestIngestRoutesPresenceSnapshot(t *testing.T) {
	pub := &fakePublisher{}
	c := &Consumer{publisher: pub}

	gameID := uuid.New()
	snap := events.PresenceSnapshot{
		PlayerID:   uuid.New(),
		PlayerName: "ana",
		LastSeenAt: time.Now().UTC(),
	}
	frame, err := json.Marshal(snap)
	require.NoError(t, err)

	c.Ingest(gameID, frame)

	require.Len(t, pub.frames, 1)
	assert.Equal(t, relay.FrameKindPresence, pub.frames[0].kind)
	assert.JSONEq(t, string(frame), string(pub.frames[0].frame))
}

func TestIngestDropsUnroutableFrames(t *testing.T) {
	pub := &fakePublisher{}
	c := &Consumer{publisher: pub}
	gameID := uuid.New()

	// Not JSON at all.
	c.Ingest(gameID, []byte("not json"))
	// Neither an envelope nor a presence snapshot.
	c.Ingest(gameID, []byte(`{"hello":"world"}`))

	// An envelope addressed to a different game.
	other, err := events.NewEnvelope(uuid.New(), events.EventTypeBuzz, events.BuzzPayload{
		PlayerID: uuid.New(),
	}, time.Now())
	require.NoError(t, err)
	frame, err := json.Marshal(other)
	require.NoError(t, err)
	c.Ingest(gameID, frame)

	assert.Empty(t, pub.frames)
}

func TestBridgeFeedDeliversBuzzToGamePool(t *testing.T) {
	cm, ts := startGateway(t, nil)
	c := &Consumer{manager: cm}

	notifications := make(chan store.BuzzNotification, 1)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.BridgeFeed(ctx, notifications)

	gameID := uuid.New()
	conn := dial(t, ts, gameID)
	playerID := uuid.New()

	notifications <- store.BuzzNotification{
		GameID:     gameID,
		QuestionID: "q-3",
		PlayerID:   playerID,
		PlayerName: "ana",
		BuzzedAt:   time.Now().UTC(),
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, gameID.String(), env.GameID)
	assert.Equal(t, events.EventTypeBuzz, env.Type)

	payload, err := events.ParsePayload(env)
	require.NoError(t, err)
	buzz := payload.(events.BuzzPayload)
	assert.Equal(t, playerID, buzz.PlayerID)
	assert.Equal(t, "q-3", buzz.QuestionID)
	assert.Equal(t, -1, buzz.QuestionIndex)
}
