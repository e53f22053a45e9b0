package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGateway(t *testing.T, ingest IngestFunc) (*ConnectionManager, *httptest.Server) {
	t.Helper()

	cm := NewConnectionManager(DefaultConnectionConfig(), ingest)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	srv := NewServer("127.0.0.1:0", cm, nil)
	ts := httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(ts.Close)
	return cm, ts
}

func dial(t *testing.T, ts *httptest.Server, gameID uuid.UUID) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + gameID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesOnlyGameClients(t *testing.T) {
	cm, ts := startGateway(t, nil)

	gameA := uuid.New()
	gameB := uuid.New()
	connA := dial(t, ts, gameA)
	connB := dial(t, ts, gameB)

	frame := []byte(`{"type":"SCORE_UPDATE"}`)
	cm.Broadcast(gameA, frame)

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := connA.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(frame), string(got))

	connB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "other game's clients see nothing")
}

func TestClientFramesReachIngest(t *testing.T) {
	type ingested struct {
		gameID uuid.UUID
		frame  []byte
	}
	received := make(chan ingested, 1)

	_, ts := startGateway(t, func(gameID uuid.UUID, frame []byte) {
		received <- ingested{gameID: gameID, frame: frame}
	})

	gameID := uuid.New()
	conn := dial(t, ts, gameID)

	frame := []byte(`{"type":"BUZZ"}`)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	select {
	case got := <-received:
		assert.Equal(t, gameID, got.gameID)
		assert.JSONEq(t, string(frame), string(got.frame))
	case <-time.After(2 * time.Second):
		t.Fatal("client frame never reached ingest")
	}
}

func TestConnectRejectsMalformedGameID(t *testing.T) {
	_, ts := startGateway(t, nil)

	resp, err := http.Get(ts.URL + "/ws/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := startGateway(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
