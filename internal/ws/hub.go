package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"staff-chat/internal/models"
	"staff-chat/internal/observability"
	"staff-chat/internal/realtime"
)

// writeWait bounds a single broadcast write so one stalled client cannot
// block event delivery to everyone else.
const writeWait = 5 * time.Second

// Hub maintains active websocket connections per room. All room types share
// one registry; the room id is the only key that matters.
type Hub struct {
	rooms map[int]map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(roomID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[roomID][conn] = info
}

// RemoveClient removes a websocket connection. Safe to call repeatedly.
func (h *Hub) RemoveClient(roomID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastRoomEvent notifies every client watching the room. Clients react
// by reloading history, so the event carries no message content.
func (h *Hub) BroadcastRoomEvent(roomID int, event models.RoomEvent) {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]ConnInfo, len(h.rooms[roomID]))
	for conn, info := range h.rooms[roomID] {
		conns[conn] = info
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for conn, info := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(roomID, conn)
			h.publishWSError(roomID, info, err)
		}
	}
}

// Pump forwards realtime events into websocket broadcasts until the context
// is cancelled. A resync event fans out to every open room.
func (h *Hub) Pump(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == realtime.KindResync {
				for _, roomID := range h.openRooms() {
					h.BroadcastRoomEvent(roomID, models.RoomEvent{Type: "room_changed", RoomID: roomID})
				}
				continue
			}
			h.BroadcastRoomEvent(ev.RoomID, models.RoomEvent{Type: "room_changed", RoomID: ev.RoomID})
		}
	}
}

func (h *Hub) openRooms() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) publishWSError(roomID int, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room_id":     roomID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"employee_id": info.EmployeeID,
			"device_id":   info.DeviceID,
			"ip":          info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
