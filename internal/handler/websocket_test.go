package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cleversamer/chatting-app/pkg/logger"
)

// dialSubscriber stands up a server-side subscription for one room and
// returns the client end of the connection.
func dialSubscriber(t *testing.T, hub *Hub, roomID uuid.UUID) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sub := hub.subscribe(roomID, conn)
		go hub.writePump(roomID, sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		hub.unsubscribe(roomID, sub)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHubBroadcastConcurrent(t *testing.T) {
	hub := NewHub(logger.NewNop())
	roomID := uuid.New()
	client := dialSubscriber(t, hub, roomID)

	// 32 senders fit inside one send buffer, so every event must arrive even
	// if the write pump has not started draining yet.
	const senders = 32
	var wg sync.WaitGroup
	wg.Add(senders)
	for i := 0; i < senders; i++ {
		go func(n int) {
			defer wg.Done()
			hub.Broadcast(roomID, "message.created", map[string]int{"n": n})
		}(i)
	}
	wg.Wait()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < senders; i++ {
		var ev wsEvent
		if err := client.ReadJSON(&ev); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		if ev.Event != "message.created" {
			t.Fatalf("unexpected event %q", ev.Event)
		}
		if ev.RoomID != roomID {
			t.Fatalf("event for room %s, want %s", ev.RoomID, roomID)
		}
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(logger.NewNop())
	roomID := uuid.New()

	// No write pump: the queue fills and the subscriber must be dropped
	// instead of blocking the broadcaster.
	sub := hub.subscribe(roomID, nil)
	for i := 0; i <= sendBuffer; i++ {
		hub.Broadcast(roomID, "message.created", i)
	}

	hub.mu.RLock()
	_, present := hub.rooms[roomID][sub]
	hub.mu.RUnlock()
	if present {
		t.Fatal("expected slow subscriber to be dropped")
	}

	// The read loop unsubscribing again after the drop is a no-op.
	hub.unsubscribe(roomID, sub)
}
