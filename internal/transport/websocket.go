package transport

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocket adapts a gorilla websocket connection to the Transport
// interface. Frames are text messages. gorilla connections allow only
// one concurrent writer, hence the mutex.
type WebSocket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

var _ Transport = (*WebSocket)(nil)

func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

func (t *WebSocket) Send(frame string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	return t.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// ReadFrame blocks until the next text frame arrives. It is intended
// for the single read loop that owns this connection.
func (t *WebSocket) ReadFrame() (string, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *WebSocket) Close() error {
	return t.conn.Close()
}

func (t *WebSocket) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
