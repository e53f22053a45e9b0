package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeed() *Feed {
	return &Feed{
		cfg:  DefaultFeedConfig("postgres://unused"),
		subs: make(map[uuid.UUID]map[chan BuzzNotification]bool),
		all:  make(map[chan BuzzNotification]bool),
	}
}

func encodeNotification(t *testing.T, n BuzzNotification) string {
	t.Helper()
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	return string(raw)
}

func TestDispatchReachesGameSubscribers(t *testing.T) {
	f := newTestFeed()
	gameA := uuid.New()
	gameB := uuid.New()

	chA := f.Subscribe(gameA)
	chB := f.Subscribe(gameB)

	notif := BuzzNotification{
		GameID:     gameA,
		QuestionID: "q-1",
		PlayerID:   uuid.New(),
		PlayerName: "ana",
		BuzzedAt:   time.Now().UTC(),
	}
	f.dispatch(encodeNotification(t, notif))

	select {
	case got := <-chA:
		assert.Equal(t, notif.QuestionID, got.QuestionID)
		assert.Equal(t, notif.PlayerID, got.PlayerID)
	default:
		t.Fatal("game subscriber never saw the notification")
	}
	select {
	case <-chB:
		t.Fatal("other game's subscriber saw the notification")
	default:
	}
}

func TestDispatchReachesFirehoseSubscribers(t *testing.T) {
	f := newTestFeed()

	fire := f.SubscribeAll()
	notif := BuzzNotification{GameID: uuid.New(), QuestionID: "q-2", PlayerID: uuid.New()}
	f.dispatch(encodeNotification(t, notif))

	select {
	case got := <-fire:
		assert.Equal(t, notif.GameID, got.GameID)
	default:
		t.Fatal("firehose subscriber never saw the notification")
	}

	f.UnsubscribeAll(fire)
	f.dispatch(encodeNotification(t, notif))
	select {
	case <-fire:
		t.Fatal("unsubscribed channel still receives")
	default:
	}
}

func TestDispatchDropsMalformedPayload(t *testing.T) {
	f := newTestFeed()
	ch := f.SubscribeAll()

	f.dispatch("not json")

	select {
	case <-ch:
		t.Fatal("malformed payload dispatched")
	default:
	}
}

func TestUnsubscribeRemovesGameSubscriber(t *testing.T) {
	f := newTestFeed()
	gameID := uuid.New()
	ch := f.Subscribe(gameID)

	f.Unsubscribe(gameID, ch)
	f.dispatch(encodeNotification(t, BuzzNotification{GameID: gameID, QuestionID: "q-3"}))

	select {
	case <-ch:
		t.Fatal("unsubscribed channel still receives")
	default:
	}
}
