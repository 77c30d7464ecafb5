package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds how long a slow dashboard client can stall a write.
	writeWait = 10 * time.Second
	// readWait is generous: dashboard connections are quiet between pings.
	readWait = 5 * time.Minute
)

// WriteTyped sends a typed payload over the WebSocket under a deadline.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON decodes the next client message under a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
