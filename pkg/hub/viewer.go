package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound reads. Viewers only send control
	// frames, so this is generous.
	maxMessageSize = 512 * 1024
)

// Viewer is one dashboard WebSocket connection attached to a hub.
type Viewer struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewViewer registers a connection with the hub and returns the viewer.
// Call Run next; the hub delivers broadcasts into the send buffer.
func NewViewer(hub *Hub, conn *websocket.Conn) *Viewer {
	v := &Viewer{
		hub:  hub,
		conn: conn,
		send: make(chan Message, 256),
	}
	hub.register <- v
	return v
}

// Run starts the write pump and blocks reading until the connection
// closes. Call from the WebSocket handler.
func (v *Viewer) Run() {
	go v.writePump()
	v.readPump()
}

// readPump drains the connection. Viewers send no data; the read loop
// exists to notice disconnects and handle pongs.
func (v *Viewer) readPump() {
	defer func() {
		v.hub.unregister <- v
		v.conn.Close()
	}()

	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump is the only goroutine that writes to the connection.
func (v *Viewer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			wsType := websocket.TextMessage
			if msg.Type == BinaryMessage {
				wsType = websocket.BinaryMessage
			}
			if err := v.conn.WriteMessage(wsType, msg.Data); err != nil {
				return
			}

		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
