package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func TestWebSocketHubBroadcast(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond, "client never registered")

	hub.Broadcast(Event{
		Type:    "entry_classified",
		EntryID: "entry-1",
		Label:   "animals",
		Score:   0.9701,
	})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "entry_classified", got.Type)
	assert.Equal(t, "entry-1", got.EntryID)
	assert.Equal(t, "animals", got.Label)
	assert.Equal(t, 0.9701, got.Score)
}

func TestWebSocketHubClientDisconnect(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond, "client never unregistered")
}

func TestWebSocketBroadcastNeverBlocks(t *testing.T) {
	// No Run loop draining the channel: once the buffer fills, further
	// broadcasts must be dropped rather than blocking the caller.
	hub := NewWebSocketHub()
	defer hub.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Broadcast(Event{Type: "entry_classified"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full channel")
	}
}

func TestWebSocketEventJSONShape(t *testing.T) {
	data, err := json.Marshal(Event{Type: "label_deleted", Label: "animals"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"label_deleted","label":"animals"}`, string(data))
}
