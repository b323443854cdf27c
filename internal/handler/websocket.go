package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cleversamer/chatting-app/internal/service"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsEvent struct {
	Event   string      `json:"event"`
	RoomID  uuid.UUID   `json:"room_id"`
	Payload interface{} `json:"payload"`
}

// sendBuffer is how many undelivered events a subscriber may lag behind
// before it is dropped.
const sendBuffer = 64

// subscriber owns one connection's outbound queue. writePump is the only
// goroutine allowed to write to the connection; gorilla/websocket permits a
// single concurrent writer per conn.
type subscriber struct {
	conn *websocket.Conn
	send chan wsEvent
}

// Hub fans room events out to websocket subscribers. It implements
// service.Broadcaster; delivery is best effort and a slow connection is
// dropped rather than allowed to block the rest.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*subscriber]struct{}
	log   logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]map[*subscriber]struct{}),
		log:   log,
	}
}

func (h *Hub) subscribe(roomID uuid.UUID, conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn, send: make(chan wsEvent, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*subscriber]struct{})
	}
	h.rooms[roomID][sub] = struct{}{}
	return sub
}

// unsubscribe is idempotent: the read loop and a slow-subscriber drop may
// both call it for the same subscriber. The send channel is closed under the
// lock so Broadcast, which sends under the read lock, can never race it.
func (h *Hub) unsubscribe(roomID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID][sub]; !ok {
		return
	}
	delete(h.rooms[roomID], sub)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	close(sub.send)
}

func (h *Hub) Broadcast(roomID uuid.UUID, event string, payload interface{}) {
	msg := wsEvent{Event: event, RoomID: roomID, Payload: payload}

	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.rooms[roomID] {
		select {
		case sub.send <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.log.Warn("websocket subscriber too slow, dropping connection", "room_id", roomID)
		h.unsubscribe(roomID, sub)
	}
}

// writePump drains the subscriber's queue onto the connection and closes it
// when the queue closes or a write fails.
func (h *Hub) writePump(roomID uuid.UUID, sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.send {
		if err := sub.conn.WriteJSON(msg); err != nil {
			h.log.Warn("websocket write failed, dropping connection", "room_id", roomID, "error", err)
			h.unsubscribe(roomID, sub)
			return
		}
	}
}

type WebSocketHandler struct {
	hub         *Hub
	roomService service.RoomService
	log         logger.Logger
}

func NewWebSocketHandler(hub *Hub, roomService service.RoomService, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		roomService: roomService,
		log:         log,
	}
}

// HandleRoom subscribes the caller to a room's live event feed. The feed is
// one-way; writes from the client only keep the connection alive.
func (h *WebSocketHandler) HandleRoom(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Blocked members may still read; GetMembers gates on membership only.
	if _, err := h.roomService.GetMembers(c.Request.Context(), currentUserID(c), roomID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade connection", "error", err)
		return
	}

	sub := h.hub.subscribe(roomID, conn)
	go h.hub.writePump(roomID, sub)
	defer h.hub.unsubscribe(roomID, sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
