package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches a connection to a session. The initial frame, usually a
// snapshot, is queued before any broadcast so the client starts from a full state.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID, userID uuid.UUID, initial []byte) {
	client := NewClient(hub, conn, sessionID, userID)
	if initial != nil {
		client.Send <- initial
	}
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
